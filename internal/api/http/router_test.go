package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/dispute-service/internal/api/http/handlers"
	"github.com/spec-kit/dispute-service/internal/audit"
	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/config"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/repository/memory"
	"github.com/spec-kit/dispute-service/internal/service"
)

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) DeliverOTP(_ context.Context, contact, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[contact] = code
	return nil
}

type testServer struct {
	app     *fiber.App
	users   *memory.Users
	tokens  *auth.TokenManager
	outbox  *outbox
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, limits config.RateLimitConfig) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	users := memory.NewUsers()
	disputes := memory.NewDisputes()
	invitations := memory.NewInvitations()
	auditLog := memory.NewAudit()
	recorder := audit.NewRecorder(audit.NewRepositorySink(auditLog), logger, metrics)
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager("router-secret", "land-dispute-service", time.Hour)
	box := &outbox{codes: map[string]string{}}

	accounts := service.NewAccountService(service.AccountDependencies{UserRepo: users, Audit: recorder, Dispatcher: dispatcher, Metrics: metrics, Logger: logger})
	otp := service.NewOTPService(service.OTPDependencies{
		UserRepo:   users,
		Codes:      memory.NewOTPCodes(),
		Deliverer:  box,
		Tokens:     tokens,
		Config:     config.OTPConfig{Length: 6, TTLSeconds: 60, MaxAttempts: 3},
		BcryptCost: bcrypt.MinCost,
		Metrics:    metrics,
		Logger:     logger,
	})
	cases := service.NewDisputeService(service.DisputeDependencies{DisputeRepo: disputes, Audit: recorder, Dispatcher: dispatcher, Metrics: metrics, Logger: logger})
	invites := service.NewInvitationService(service.InvitationDependencies{
		InvitationRepo: invitations,
		DisputeRepo:    disputes,
		UserRepo:       users,
		Disputes:       cases,
		Renderer:       collab.LogLetterRenderer{Logger: logger},
		Chat:           collab.LogChatSender{Logger: logger},
		Audit:          recorder,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})

	app := fiber.New()
	RegisterMiddlewares(ctx, app, MiddlewareConfig{Logger: logger, Metrics: metrics, Timeout: 5 * time.Second, RateLimit: limits})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("land-dispute-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(accounts, otp),
		Accounts:       handlers.NewAccountsHandler(accounts, service.NewAuditQueryService(auditLog)),
		Disputes:       handlers.NewDisputesHandler(cases),
		Invitations:    handlers.NewInvitationsHandler(invites),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
		Metrics:        metrics,
	})
	return &testServer{app: app, users: users, tokens: tokens, outbox: box, metrics: metrics}
}

// seed stores an active user and returns it with a bearer token.
func (s *testServer) seed(t *testing.T, role domain.Role, district string) (*domain.User, string) {
	t.Helper()
	level := &domain.Level{Role: role}
	if district != "" {
		level.District = &district
	}
	u := &domain.User{
		FullName:      "Seeded " + string(role),
		PhoneNumber:   "+25078" + uuid.NewString()[:8],
		BaseRole:      domain.RoleUser,
		Level:         level,
		AccountStatus: domain.AccountStatusActive,
	}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, err := s.tokens.GenerateToken(u, role)
	require.NoError(t, err)
	return u, token.Value
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthReportsInMemoryStores(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})

	status, _ := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(fiber.MethodGet, "/health/ready", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var payload struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ready", payload.Status)
	assert.Equal(t, "in-memory", payload.Dependencies["postgres"])
}

func TestRegisterAndLoginWithOneTimeCode(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	phone := "+250788123456"

	status, env := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]any{"full_name": "Aline Uwase", "phone_number": phone})
	require.Equal(t, fiber.StatusCreated, status)

	status, env = s.do(t, fiber.MethodPost, "/auth/register", "", map[string]any{"full_name": "Aline Uwase", "phone_number": phone})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONTACT_TAKEN", env.Error.Code)

	status, _ = s.do(t, fiber.MethodPost, "/auth/otp/request", "", map[string]any{"contact": phone})
	require.Equal(t, fiber.StatusAccepted, status)
	code := s.outbox.codes[phone]
	require.Len(t, code, 6)

	status, env = s.do(t, fiber.MethodPost, "/auth/otp/verify", "", map[string]any{"contact": phone, "code": "000000"})
	if code != "000000" {
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "INVALID_CODE", env.Error.Code)
	}

	status, env = s.do(t, fiber.MethodPost, "/auth/otp/verify", "", map[string]any{"contact": phone, "code": code})
	require.Equal(t, fiber.StatusOK, status)
	login := decode[struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}](t, env)
	require.NotEmpty(t, login.Auth.Token)

	status, env = s.do(t, fiber.MethodGet, "/me", login.Auth.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	me := decode[map[string]any](t, env)
	assert.Equal(t, phone, me["phone_number"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})

	status, env := s.do(t, fiber.MethodGet, "/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env = s.do(t, fiber.MethodGet, "/disputes", "not-a-jwt", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestDisputeLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	_, ownerToken := s.seed(t, domain.RoleUser, "")
	_, strangerToken := s.seed(t, domain.RoleUser, "")
	_, managerToken := s.seed(t, domain.RoleManager, "Kigali")

	status, env := s.do(t, fiber.MethodPost, "/disputes", ownerToken, map[string]any{"title": "Fence"})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "upi")

	status, env = s.do(t, fiber.MethodPost, "/disputes", ownerToken, map[string]any{
		"upi": "1/02/03/04/567", "district": "Kigali", "title": "Fence", "description": "moved",
	})
	require.Equal(t, fiber.StatusCreated, status)
	created := decode[struct {
		ID             string `json:"id"`
		CurrentVersion int    `json:"current_version"`
	}](t, env)
	assert.Equal(t, 1, created.CurrentVersion)
	path := "/disputes/" + created.ID

	status, env = s.do(t, fiber.MethodPatch, path, ownerToken, map[string]any{"description": "moved two metres", "reason": "clarify"})
	require.Equal(t, fiber.StatusOK, status)
	updated := decode[struct {
		Version struct {
			Version int `json:"version"`
		} `json:"version"`
	}](t, env)
	assert.Equal(t, 2, updated.Version.Version)

	status, env = s.do(t, fiber.MethodPatch, path, strangerToken, map[string]any{"description": "hijack"})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = s.do(t, fiber.MethodPatch, path, ownerToken, map[string]any{"description": "stale", "expected_version": 1})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONCURRENT_MODIFICATION", env.Error.Code)

	status, env = s.do(t, fiber.MethodPost, path+"/transition", managerToken, map[string]any{"status": "resolved"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)
	assert.Equal(t, "open", env.Error.Details["from"])

	status, _ = s.do(t, fiber.MethodPost, path+"/transition", managerToken, map[string]any{"status": "processing"})
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, fiber.MethodPatch, path, ownerToken, map[string]any{"title": "locked"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.do(t, fiber.MethodGet, path+"/versions", ownerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	versions := decode[[]struct {
		Version int `json:"version"`
	}](t, env)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Version)
	}

	status, env = s.do(t, fiber.MethodGet, "/disputes/stats?district=Kigali", managerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	stats := decode[struct {
		Counts map[string]int `json:"counts"`
	}](t, env)
	assert.Equal(t, 1, stats.Counts["processing"])
}

func TestSuspendedAccountIsRejected(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	_, adminToken := s.seed(t, domain.RoleAdmin, "")
	citizen, citizenToken := s.seed(t, domain.RoleUser, "")
	_, otherToken := s.seed(t, domain.RoleUser, "")

	status, _ := s.do(t, fiber.MethodPost, "/accounts/"+citizen.ID+"/suspend", otherToken, map[string]any{"reason": "fraud"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, fiber.MethodPost, "/accounts/"+citizen.ID+"/suspend", adminToken, map[string]any{"reason": "fraud"})
	require.Equal(t, fiber.StatusOK, status)

	status, env := s.do(t, fiber.MethodGet, "/me", citizenToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ACCOUNT_SUSPENDED", env.Error.Code)
	assert.Equal(t, "fraud", env.Error.Details["reason"])
	assert.NotEmpty(t, env.Error.Details["suspended_at"])

	status, env = s.do(t, fiber.MethodPost, "/accounts/"+citizen.ID+"/suspend", adminToken, map[string]any{"reason": "again"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_SUSPENDED", env.Error.Code)

	status, env = s.do(t, fiber.MethodGet, "/audit/user/"+citizen.ID, adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	entries := decode[[]struct {
		Action string `json:"action"`
	}](t, env)
	require.Len(t, entries, 1)
	assert.Equal(t, "account.suspended", entries[0].Action)

	status, _ = s.do(t, fiber.MethodPost, "/accounts/"+citizen.ID+"/reactivate", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, fiber.MethodGet, "/me", citizenToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestSwitchAccountOverHTTP(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	_, adminToken := s.seed(t, domain.RoleAdmin, "")

	status, env := s.do(t, fiber.MethodPost, "/accounts/switch", adminToken, map[string]any{"role": "superadmin"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	status, env = s.do(t, fiber.MethodPost, "/accounts/switch", adminToken, map[string]any{"role": "user"})
	require.Equal(t, fiber.StatusOK, status)
	switched := decode[struct {
		Level struct {
			EffectiveRole string `json:"effective_role"`
			IsSwitch      bool   `json:"is_switch"`
		} `json:"level"`
	}](t, env)
	assert.True(t, switched.Level.IsSwitch)
	assert.Equal(t, "user", switched.Level.EffectiveRole)

	status, _ = s.do(t, fiber.MethodGet, "/audit/user/anyone", adminToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, fiber.MethodPost, "/accounts/restore", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, fiber.MethodGet, "/audit/user/anyone", adminToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestInvitationFlowOverHTTP(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	_, ownerToken := s.seed(t, domain.RoleUser, "")
	defendant, _ := s.seed(t, domain.RoleUser, "")
	_, managerToken := s.seed(t, domain.RoleManager, "Kigali")

	status, env := s.do(t, fiber.MethodPost, "/disputes", ownerToken, map[string]any{"upi": "u-1", "district": "Kigali", "title": "Boundary"})
	require.Equal(t, fiber.StatusCreated, status)
	disputeID := decode[struct {
		ID string `json:"id"`
	}](t, env).ID

	status, env = s.do(t, fiber.MethodPost, "/disputes/"+disputeID+"/invitations", managerToken, map[string]any{
		"date_time": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"location":  "Sector office",
	})
	require.Equal(t, fiber.StatusCreated, status)
	invID := decode[struct {
		ID string `json:"id"`
	}](t, env).ID
	invPath := "/invitations/" + invID

	status, env = s.do(t, fiber.MethodPost, invPath+"/letter", managerToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	status, _ = s.do(t, fiber.MethodPost, invPath+"/defendant", managerToken, map[string]any{"defendant_id": defendant.ID})
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, fiber.MethodPost, invPath+"/letter", managerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	letter := decode[struct {
		Invitation struct {
			Status string `json:"status"`
		} `json:"invitation"`
		Document *struct {
			ID string `json:"id"`
		} `json:"document"`
		Warnings []any `json:"warnings"`
	}](t, env)
	assert.Equal(t, "letter_issued", letter.Invitation.Status)
	require.NotNil(t, letter.Document)
	assert.Empty(t, letter.Warnings)

	status, _ = s.do(t, fiber.MethodPost, invPath+"/documents", managerToken, map[string]any{"documents": []string{"summons.pdf"}})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, fiber.MethodPost, invPath+"/cancel", managerToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, env = s.do(t, fiber.MethodPost, invPath+"/cancel", managerToken, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_CANCELED", env.Error.Code)

	status, _ = s.do(t, fiber.MethodGet, invPath, ownerToken, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	status, _ := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	status, env := s.do(t, fiber.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, config.RateLimitConfig{})
	s.do(t, fiber.MethodGet, "/health/live", "", nil)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "land_dispute_http_requests_total")
}
