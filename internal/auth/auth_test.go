package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/repository/memory"
	apperrors "github.com/spec-kit/dispute-service/pkg/util"
)

func newUser(t *testing.T, users *memory.Users, role domain.Role, status domain.AccountStatus) *domain.User {
	t.Helper()
	user := &domain.User{
		FullName:      "Test " + string(role),
		PhoneNumber:   "+2507880" + string(role),
		BaseRole:      domain.RoleUser,
		Level:         &domain.Level{Role: role},
		AccountStatus: status,
	}
	if status == domain.AccountStatusSuspended {
		user.Suspension = &domain.Suspension{SuspendedBy: "admin", Reason: "fraud", SuspendedAt: time.Now().UTC()}
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func testApp(tokens *TokenManager, users *memory.Users, extra ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": domainErr.Code, "details": domainErr.Details}})
	}})
	handlers := append([]fiber.Handler{NewAuthMiddleware(tokens, users).Handle}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		actor, err := Actor(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": actor.ID})
	})
	app.Get("/me", handlers...)
	return app
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "land", time.Minute)
	token, err := tm.GenerateToken(&domain.User{ID: "u-1"}, domain.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, "u-1", token.SubjectID)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleManager, claims.Role)
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	tm := NewTokenManager("secret", "land", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := tm.GenerateToken(&domain.User{ID: "u-1"}, domain.RoleUser)
	require.NoError(t, err)
	tm.now = time.Now
	_, err = tm.ParseToken(expired.Value)
	assert.Error(t, err)

	other := NewTokenManager("other-secret", "land", time.Minute)
	foreign, err := other.GenerateToken(&domain.User{ID: "u-1"}, domain.RoleUser)
	require.NoError(t, err)
	_, err = tm.ParseToken(foreign.Value)
	assert.Error(t, err)

	wrongIssuer := NewTokenManager("secret", "elsewhere", time.Minute)
	token, err := wrongIssuer.GenerateToken(&domain.User{ID: "u-1"}, domain.RoleUser)
	require.NoError(t, err)
	_, err = tm.ParseToken(token.Value)
	assert.Error(t, err)
}

func TestMiddlewareAuthenticatesActiveUser(t *testing.T) {
	users := memory.NewUsers()
	tm := NewTokenManager("secret", "land", time.Minute)
	user := newUser(t, users, domain.RoleUser, domain.AccountStatusActive)
	token, err := tm.GenerateToken(user, domain.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token.Value)
	resp, err := testApp(tm, users).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingAndMalformedHeader(t *testing.T) {
	users := memory.NewUsers()
	tm := NewTokenManager("secret", "land", time.Minute)
	app := testApp(tm, users)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Basic abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareGatesSuspendedAccount(t *testing.T) {
	users := memory.NewUsers()
	tm := NewTokenManager("secret", "land", time.Minute)
	user := newUser(t, users, domain.RoleAdmin, domain.AccountStatusSuspended)
	token, err := tm.GenerateToken(user, domain.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token.Value)
	resp, err := testApp(tm, users).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ACCOUNT_SUSPENDED", errorCode(t, body))
}

func TestRequireRolesUsesEffectiveRole(t *testing.T) {
	users := memory.NewUsers()
	tm := NewTokenManager("secret", "land", time.Minute)
	admin := newUser(t, users, domain.RoleAdmin, domain.AccountStatusActive)

	stored, err := users.GetByID(context.Background(), admin.ID)
	require.NoError(t, err)
	trueRole := domain.RoleAdmin
	stored.Level = &domain.Level{Role: domain.RoleUser, AccountRole: &trueRole, IsSwitch: true}
	require.NoError(t, users.Update(context.Background(), stored))

	token, err := tm.GenerateToken(admin, domain.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token.Value)

	resp, err := testApp(tm, users, RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin)).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSecretHashing(t *testing.T) {
	hashed, err := HashSecret("482913", 4)
	require.NoError(t, err)
	assert.True(t, CompareSecret(hashed, "482913"))
	assert.False(t, CompareSecret(hashed, "000000"))
}
