package http

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/config"
	"github.com/spec-kit/dispute-service/internal/observability"
	apperrors "github.com/spec-kit/dispute-service/pkg/util"
)

const limiterClientTTL = 10 * time.Minute

// MiddlewareConfig bundles the global middleware settings.
type MiddlewareConfig struct {
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Timeout   time.Duration
	RateLimit config.RateLimitConfig
}

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The limiter cleanup loop stops when ctx is done.
func RegisterMiddlewares(ctx context.Context, app *fiber.App, cfg MiddlewareConfig) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.Timeout))
	}
	app.Use(errorHandlingMiddleware(cfg.Logger, cfg.Metrics))
	app.Use(observability.RequestLogger(cfg.Logger, cfg.Metrics))
	app.Use(requestIDContextMiddleware())
	if cfg.RateLimit.RequestsPerSecond > 0 {
		app.Use(newIPRateLimiter(ctx, cfg.RateLimit).handle)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// requestIDContextMiddleware forwards the request id to outbound collaborator calls.
func requestIDContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("request_id").(string); ok && id != "" {
			c.SetUserContext(collab.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func newIPRateLimiter(ctx context.Context, cfg config.RateLimitConfig) *ipRateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l := &ipRateLimiter{
		clients: make(map[string]*rateLimitClient),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
	go l.cleanup(ctx)
	return l
}

func (l *ipRateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evict(l.now().Add(-limiterClientTTL))
		case <-ctx.Done():
			return
		}
	}
}

func (l *ipRateLimiter) evict(before time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, client := range l.clients {
		if client.lastSeen.Before(before) {
			delete(l.clients, ip)
		}
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	client, ok := l.clients[ip]
	if !ok {
		client = &rateLimitClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = l.now()
	return client.limiter.Allow()
}

func (l *ipRateLimiter) handle(c *fiber.Ctx) error {
	if !l.allow(c.IP()) {
		return apperrors.NewTooManyRequests("rate limit exceeded")
	}
	return c.Next()
}
