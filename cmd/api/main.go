package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dispute-service/internal/api/http"
	"github.com/spec-kit/dispute-service/internal/api/http/handlers"
	"github.com/spec-kit/dispute-service/internal/audit"
	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/config"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/persistence"
	"github.com/spec-kit/dispute-service/internal/repository"
	"github.com/spec-kit/dispute-service/internal/repository/memory"
	"github.com/spec-kit/dispute-service/internal/service"
	"github.com/spec-kit/dispute-service/internal/worker"
)

type stores struct {
	users       repository.UserRepository
	disputes    repository.DisputeRepository
	invitations repository.InvitationRepository
	audit       repository.AuditRepository
	codes       repository.OTPStore
	auditSink   audit.Sink
}

type collaborators struct {
	renderer collab.LetterRenderer
	otp      collab.OTPDeliverer
	chat     collab.ChatSender
	notifier collab.EventNotifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, cfg.Postgres.MigrationsPath, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	st := buildStores(pg, redis, cfg.Redis, logger)
	cl := buildCollaborators(cfg.Notification, logger)

	auditQueue := audit.NewAsyncSink(st.auditSink, logger, metrics, 1024)
	auditQueue.Start()
	recorder := audit.NewRecorder(auditQueue, logger, metrics)
	dispatcher := worker.NewAsyncDispatcher(events.NewInMemoryDispatcher(), logger, 1024)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, cl.notifier, logger))
	dispatcher.Start()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())

	accountService := service.NewAccountService(service.AccountDependencies{
		UserRepo:   st.users,
		Audit:      recorder,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	otpService := service.NewOTPService(service.OTPDependencies{
		UserRepo:   st.users,
		Codes:      st.codes,
		Deliverer:  cl.otp,
		Tokens:     tokens,
		Config:     cfg.OTP,
		BcryptCost: cfg.Auth.BcryptCost,
		Metrics:    metrics,
		Logger:     logger,
	})
	disputeService := service.NewDisputeService(service.DisputeDependencies{
		DisputeRepo:  st.disputes,
		Audit:        recorder,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
		StrictFields: cfg.Policy.StrictFields,
	})
	invitationService := service.NewInvitationService(service.InvitationDependencies{
		InvitationRepo: st.invitations,
		DisputeRepo:    st.disputes,
		UserRepo:       st.users,
		Disputes:       disputeService,
		Renderer:       cl.renderer,
		Chat:           cl.chat,
		Audit:          recorder,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	auditService := service.NewAuditQueryService(st.audit)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(ctx, app, httptransport.MiddlewareConfig{
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   cfg.App.RequestTimeout(),
		RateLimit: cfg.RateLimit,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(accountService, otpService),
		Accounts:       handlers.NewAccountsHandler(accountService, auditService),
		Disputes:       handlers.NewDisputesHandler(disputeService),
		Invitations:    handlers.NewInvitationsHandler(invitationService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, st.users),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	dispatcher.Stop()
	auditQueue.Stop()
}

// buildStores picks Postgres and Redis backed stores when configured and
// in-memory ones otherwise.
func buildStores(pg *persistence.Postgres, rdb *persistence.Redis, cfg config.RedisConfig, logger *zap.Logger) stores {
	var st stores
	if pg.Configured() {
		pool := pg.PoolHandle()
		st.users = repository.NewUserRepository(pool)
		st.disputes = repository.NewDisputeRepository(pool)
		st.invitations = repository.NewInvitationRepository(pool)
		st.audit = repository.NewAuditRepository(pool)
	} else {
		st.users = memory.NewUsers()
		st.disputes = memory.NewDisputes()
		st.invitations = memory.NewInvitations()
		st.audit = memory.NewAudit()
	}

	sinks := audit.MultiSink{audit.NewRepositorySink(st.audit)}
	if rdb.Configured() {
		st.codes = repository.NewRedisOTPStore(rdb.Client)
		sinks = append(sinks, audit.NewStreamSink(rdb.Client, cfg.AuditStream))
	} else {
		logger.Warn("otp codes kept in process memory")
		st.codes = memory.NewOTPCodes()
	}
	st.auditSink = sinks
	return st
}

// buildCollaborators uses webhook clients for configured endpoints and
// log-only stubs for the rest.
func buildCollaborators(cfg config.NotificationConfig, logger *zap.Logger) collaborators {
	cl := collaborators{
		renderer: collab.LogLetterRenderer{Logger: logger},
		otp:      collab.LogOTPDeliverer{Logger: logger},
		chat:     collab.LogChatSender{Logger: logger},
		notifier: collab.LogEventNotifier{Logger: logger},
	}
	timeout := cfg.Timeout()
	if cfg.LetterRendererURL != "" {
		cl.renderer = collab.NewWebhookLetterRenderer(cfg.LetterRendererURL, timeout)
	}
	if cfg.OTPWebhookURL != "" {
		cl.otp = collab.NewWebhookOTPDeliverer(cfg.OTPWebhookURL, timeout)
	}
	if cfg.ChatWebhookURL != "" {
		cl.chat = collab.NewWebhookChatSender(cfg.ChatWebhookURL, timeout)
	}
	if cfg.EventWebhookURL != "" {
		cl.notifier = collab.NewWebhookEventNotifier(cfg.EventWebhookURL, timeout)
	}
	return cl
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
