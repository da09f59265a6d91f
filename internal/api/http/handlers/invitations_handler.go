package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispute-service/internal/api/dto"
	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/service"
)

// InvitationsHandler exposes the hearing invitation workflow.
type InvitationsHandler struct {
	invitations *service.InvitationService
}

// NewInvitationsHandler constructs handler.
func NewInvitationsHandler(invitations *service.InvitationService) *InvitationsHandler {
	return &InvitationsHandler{invitations: invitations}
}

// Create handles POST /disputes/:id/invitations.
func (h *InvitationsHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateInvitationRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	inv, err := h.invitations.CreateInvitation(c.UserContext(), actor, c.Params("id"), req.Input())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewInvitationResponse(inv))
}

// ListForDispute handles GET /disputes/:id/invitations.
func (h *InvitationsHandler) ListForDispute(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	items, err := h.invitations.ListInvitations(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewInvitationResponses(items))
}

// Get handles GET /invitations/:id.
func (h *InvitationsHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	inv, err := h.invitations.GetInvitation(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewInvitationResponse(inv))
}

// Schedule handles PUT /invitations/:id/schedule.
func (h *InvitationsHandler) Schedule(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	inv, err := h.invitations.UpdateSchedule(c.UserContext(), actor, c.Params("id"), req.DateTime, req.Location)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewInvitationResponse(inv))
}

// AssignDefendant handles POST /invitations/:id/defendant.
func (h *InvitationsHandler) AssignDefendant(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.AssignDefendantRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	inv, err := h.invitations.AssignDefendant(c.UserContext(), actor, c.Params("id"), req.DefendantID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewInvitationResponse(inv))
}

// GenerateLetter handles POST /invitations/:id/letter.
func (h *InvitationsHandler) GenerateLetter(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.LetterRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	res, err := h.invitations.GenerateLetter(c.UserContext(), actor, c.Params("id"), req.Params())
	if err != nil {
		return err
	}
	payload := fiber.Map{
		"invitation": dto.NewInvitationResponse(res.Invitation),
		"warnings":   dto.NewWarningResponses(res.Warnings),
	}
	if res.Document != nil {
		payload["document"] = fiber.Map{"id": res.Document.ID, "url": res.Document.URL}
	}
	return data(c, http.StatusOK, payload)
}

// ShareDocuments handles POST /invitations/:id/documents.
func (h *InvitationsHandler) ShareDocuments(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.ShareDocumentsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.invitations.ShareDocuments(c.UserContext(), actor, c.Params("id"), req.Documents, req.Recipients)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, fiber.Map{
		"invitation": dto.NewInvitationResponse(res.Invitation),
		"warnings":   dto.NewWarningResponses(res.Warnings),
	})
}

// Cancel handles POST /invitations/:id/cancel.
func (h *InvitationsHandler) Cancel(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	inv, err := h.invitations.CancelInvitation(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewInvitationResponse(inv))
}
