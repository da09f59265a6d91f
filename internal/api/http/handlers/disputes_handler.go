package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispute-service/internal/api/dto"
	"github.com/spec-kit/dispute-service/internal/auth"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/service"
)

// DisputesHandler exposes case intake, editing and adjudication.
type DisputesHandler struct {
	disputes *service.DisputeService
}

// NewDisputesHandler constructs handler.
func NewDisputesHandler(disputes *service.DisputeService) *DisputesHandler {
	return &DisputesHandler{disputes: disputes}
}

// Create handles POST /disputes.
func (h *DisputesHandler) Create(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.CreateDisputeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	dispute, err := h.disputes.CreateDispute(c.UserContext(), actor, req.Input())
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, dto.NewDisputeResponse(dispute))
}

// List handles GET /disputes.
func (h *DisputesHandler) List(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	filter := service.DisputeFilter{
		District:   optionalQuery(c, "district"),
		UPI:        optionalQuery(c, "upi"),
		SearchTerm: optionalQuery(c, "q"),
		Statuses:   parseStatuses(c.Query("status")),
		Limit:      limit,
		Offset:     c.QueryInt("offset", 0),
	}
	items, err := h.disputes.ListDisputes(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewDisputeResponses(items),
		"meta": fiber.Map{"limit": filter.Limit, "offset": filter.Offset, "count": len(items)},
	})
}

// Stats handles GET /disputes/stats.
func (h *DisputesHandler) Stats(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	district := optionalQuery(c, "district")
	counts, err := h.disputes.DisputeStats(c.UserContext(), actor, district)
	if err != nil {
		return err
	}
	scope := "national"
	if district != nil {
		scope = *district
	}
	return data(c, http.StatusOK, fiber.Map{"scope": scope, "counts": counts})
}

// Get handles GET /disputes/:id.
func (h *DisputesHandler) Get(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	dispute, err := h.disputes.GetDispute(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewDisputeResponse(dispute))
}

// Update handles PATCH /disputes/:id.
func (h *DisputesHandler) Update(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDisputeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.disputes.UpdateDispute(c.UserContext(), actor, c.Params("id"), req.Patch(), req.Reason, req.ExpectedVersion)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUpdateDisputeResponse(res))
}

// Transition handles POST /disputes/:id/transition.
func (h *DisputesHandler) Transition(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.disputes.TransitionDispute(c.UserContext(), actor, c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewUpdateDisputeResponse(res))
}

// Versions handles GET /disputes/:id/versions.
func (h *DisputesHandler) Versions(c *fiber.Ctx) error {
	actor, err := auth.Actor(c)
	if err != nil {
		return err
	}
	versions, err := h.disputes.ListVersions(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, dto.NewCaseVersionResponses(versions))
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

func parseStatuses(raw string) []domain.DisputeStatus {
	if raw == "" {
		return nil
	}
	var statuses []domain.DisputeStatus
	for _, part := range strings.Split(raw, ",") {
		status := domain.DisputeStatus(strings.TrimSpace(part))
		if status.Valid() {
			statuses = append(statuses, status)
		}
	}
	return statuses
}
