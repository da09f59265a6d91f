package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispute-service/internal/api/dto"
	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/service"
)

// AccountsHandler exposes account administration and role switching.
type AccountsHandler struct {
	accounts *service.AccountService
	audit    *service.AuditQueryService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService, audit *service.AuditQueryService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, audit: audit}
}

// Me handles GET /me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.GetUser(c.UserContext(), actor, actor.ID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Get handles GET /accounts/:id.
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.GetUser(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Switch handles POST /accounts/switch.
func (h *AccountsHandler) Switch(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.SwitchRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.SwitchAccount(c.UserContext(), actor, req.Role)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Restore handles POST /accounts/restore.
func (h *AccountsHandler) Restore(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.RestoreAccount(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Suspend handles POST /accounts/:id/suspend.
func (h *AccountsHandler) Suspend(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.SuspendRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.Suspend(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// Reactivate handles POST /accounts/:id/reactivate.
func (h *AccountsHandler) Reactivate(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.Reactivate(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// AssignLevel handles PUT /accounts/:id/level.
func (h *AccountsHandler) AssignLevel(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.AssignLevelRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.AssignLevel(c.UserContext(), actor, c.Params("id"), req.Role, req.District)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUserResponse(user))
}

// AuditHistory handles GET /audit/:type/:id.
func (h *AccountsHandler) AuditHistory(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	entries, err := h.audit.History(c.UserContext(), actor, domain.TargetType(c.Params("type")), c.Params("id"), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewAuditEntryResponses(entries))
}
