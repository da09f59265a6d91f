package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/audit"
	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/policy"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// InvitationService runs the hearing invitation workflow.
type InvitationService struct {
	runtime
	invitations repository.InvitationRepository
	disputes    repository.DisputeRepository
	users       repository.UserRepository
	cases       *DisputeService
	renderer    collab.LetterRenderer
	chat        collab.ChatSender
	audit       *audit.Recorder
}

// InvitationDependencies bundles collaborators for the invitation service.
type InvitationDependencies struct {
	InvitationRepo repository.InvitationRepository
	DisputeRepo    repository.DisputeRepository
	UserRepo       repository.UserRepository
	Disputes       *DisputeService
	Renderer       collab.LetterRenderer
	Chat           collab.ChatSender
	Audit          *audit.Recorder
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// InvitationCreateInput describes a new hearing invitation.
type InvitationCreateInput struct {
	Invitees []string
	DateTime *time.Time
	Location *string
	Level    string
}

// InvitationResult is the outcome of an invitation operation. Warnings list
// side effects that failed after the state change committed.
type InvitationResult struct {
	Invitation *domain.Invitation
	Document   *collab.DocumentHandle
	Warnings   []Warning
}

// NewInvitationService constructs the service.
func NewInvitationService(deps InvitationDependencies) *InvitationService {
	return &InvitationService{
		runtime:     newRuntime(deps.Dispatcher, deps.Metrics, deps.Logger),
		invitations: deps.InvitationRepo,
		disputes:    deps.DisputeRepo,
		users:       deps.UserRepo,
		cases:       deps.Disputes,
		renderer:    deps.Renderer,
		chat:        deps.Chat,
		audit:       deps.Audit,
	}
}

// CreateInvitation summons the parties of an existing case.
func (s *InvitationService) CreateInvitation(ctx context.Context, actor *domain.User, disputeID string, input InvitationCreateInput) (*domain.Invitation, error) {
	const action = "invitation.create"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageInvitation(actor, dispute.District) {
		return nil, s.deny(action, "actor may not manage invitations in district "+dispute.District)
	}

	invitees := uniqueNonEmpty(input.Invitees)
	if len(invitees) == 0 {
		invitees = uniqueNonEmpty([]string{dispute.ClaimantID, deref(dispute.DefendantID)})
	}
	level := input.Level
	if level == "" {
		level = dispute.Level
	}
	inv := &domain.Invitation{
		DisputeID:       dispute.ID,
		InvitedBy:       actor.ID,
		Invitees:        invitees,
		ClaimantID:      dispute.ClaimantID,
		DefendantID:     dispute.DefendantID,
		DateTime:        input.DateTime,
		Location:        trimmed(input.Location),
		District:        dispute.District,
		Level:           level,
		Status:          domain.InvitationStatusCreated,
		SharedDocuments: []string{},
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionInvitationCreated, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{"dispute_id": dispute.ID})
	s.publish(ctx, actor, events.EventInvitationCreated, inv)
	return inv, nil
}

// GetInvitation returns an invitation visible to the actor.
func (s *InvitationService) GetInvitation(ctx context.Context, actor *domain.User, id string) (*domain.Invitation, error) {
	const action = "invitation.read"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewInvitation(actor, inv) {
		return nil, s.deny(action, "invitation not visible to actor")
	}
	return inv, nil
}

// ListInvitations returns the invitations of a case the actor may see.
func (s *InvitationService) ListInvitations(ctx context.Context, actor *domain.User, disputeID string) ([]domain.Invitation, error) {
	const action = "invitation.list"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewDispute(actor, dispute) && !policy.CanManageInvitation(actor, dispute.District) {
		return nil, s.deny(action, "case not visible to actor")
	}
	all, err := s.invitations.ListByDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	visible := make([]domain.Invitation, 0, len(all))
	for i := range all {
		if policy.CanViewInvitation(actor, &all[i]) {
			visible = append(visible, all[i])
		}
	}
	return visible, nil
}

// UpdateSchedule sets the hearing date and venue.
func (s *InvitationService) UpdateSchedule(ctx context.Context, actor *domain.User, id string, dateTime *time.Time, location *string) (*domain.Invitation, error) {
	const action = "invitation.schedule"
	inv, err := s.loadManaged(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	if inv.IsCanceled {
		return nil, &domain.InvalidStateError{State: inv.Status, Operation: "reschedule"}
	}
	location = trimmed(location)
	if dateTime == nil && (location == nil || *location == "") {
		return nil, validation("date_time or location is required", nil)
	}
	if dateTime != nil {
		at := dateTime.UTC()
		inv.DateTime = &at
	}
	if location != nil && *location != "" {
		inv.Location = location
	}
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, err
	}

	details := map[string]any{}
	if inv.DateTime != nil {
		details["date_time"] = inv.DateTime.Format(time.RFC3339)
	}
	if inv.Location != nil {
		details["location"] = *inv.Location
	}
	s.audit.Record(ctx, audit.ActionInvitationScheduled, actor.ID, domain.TargetInvitation, inv.ID, details)
	return inv, nil
}

// AssignDefendant names the defendant of the case. Legal only from created.
func (s *InvitationService) AssignDefendant(ctx context.Context, actor *domain.User, id, defendantID string) (*domain.Invitation, error) {
	const action = "invitation.assign_defendant"
	inv, err := s.loadManaged(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.InvitationStatusCreated {
		return nil, &domain.InvalidStateError{State: inv.Status, Operation: "assign defendant"}
	}
	defendantID = strings.TrimSpace(defendantID)
	if defendantID == "" {
		return nil, validation("defendant is required", map[string]any{"defendant_id": "required"})
	}
	if defendantID == inv.ClaimantID {
		return nil, validation("defendant must differ from claimant", map[string]any{"defendant_id": "equals claimant"})
	}
	if _, err := s.users.GetByID(ctx, defendantID); err != nil {
		return nil, err
	}

	dispute, err := s.disputes.GetByID(ctx, inv.DisputeID)
	if err != nil {
		return nil, err
	}
	version, err := s.cases.RecordDefendant(ctx, actor, dispute, defendantID, "defendant assigned")
	if err != nil {
		return nil, err
	}

	inv.DefendantID = &defendantID
	inv.Invitees = uniqueNonEmpty(append(inv.Invitees, defendantID))
	inv.Status = domain.InvitationStatusDefendantAssigned
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, err
	}

	details := map[string]any{"defendant_id": defendantID, "dispute_id": inv.DisputeID}
	if version != nil {
		details["dispute_version"] = version.Version
	}
	s.audit.Record(ctx, audit.ActionDefendantAssigned, actor.ID, domain.TargetInvitation, inv.ID, details)
	s.publish(ctx, actor, events.EventDefendantAssigned, inv)
	return inv, nil
}

// GenerateLetter marks the letter issued, then asks the renderer for the document.
// A rendering failure leaves the issued state in place and is returned as a warning.
func (s *InvitationService) GenerateLetter(ctx context.Context, actor *domain.User, id string, params domain.LetterParams) (*InvitationResult, error) {
	const action = "invitation.generate_letter"
	inv, err := s.loadManaged(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case domain.InvitationStatusDefendantAssigned, domain.InvitationStatusLetterIssued, domain.InvitationStatusDocumentsShared:
	default:
		return nil, &domain.InvalidStateError{State: inv.Status, Operation: "generate letter"}
	}
	if inv.DateTime == nil || inv.Location == nil || *inv.Location == "" {
		return nil, validation("invitation needs a date and location before a letter is generated", map[string]any{
			"date_time": inv.DateTime != nil,
			"location": inv.Location != nil && *inv.Location != "",
		})
	}
	if params.LetterType == "" {
		params.LetterType = "hearing_invitation"
	}
	if params.MeetingDate.IsZero() {
		params.MeetingDate = *inv.DateTime
	}
	if params.Venue == "" {
		params.Venue = *inv.Location
	}

	if inv.Status == domain.InvitationStatusDefendantAssigned {
		inv.Status = domain.InvitationStatusLetterIssued
	}
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.ActionLetterIssued, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{"letter_type": params.LetterType})
	s.publish(ctx, actor, events.EventLetterIssued, inv)

	result := &InvitationResult{Invitation: inv}
	handle, err := s.renderer.RenderInvitationLetter(ctx, inv, params)
	if err != nil {
		result.Warnings = append(result.Warnings, s.warn("letter_render_failed", err))
		s.audit.Record(ctx, audit.ActionLetterRenderFailed, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{"error": err.Error()})
		return result, nil
	}
	result.Document = &handle

	inv.LetterDocument = &handle.ID
	if err := s.invitations.Update(ctx, inv); err != nil {
		result.Warnings = append(result.Warnings, s.warn("letter_attach_failed", err))
		s.audit.Record(ctx, audit.ActionSideEffectFailed, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{
			"operation": "attach letter",
			"document":  handle.ID,
			"error":     err.Error(),
		})
	}
	return result, nil
}

// ShareDocuments records and delivers documents to the recipients.
func (s *InvitationService) ShareDocuments(ctx context.Context, actor *domain.User, id string, documents, recipients []string) (*InvitationResult, error) {
	const action = "invitation.share_documents"
	inv, err := s.loadManaged(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	if inv.IsCanceled {
		return nil, &domain.InvalidStateError{State: inv.Status, Operation: "share documents"}
	}
	documents = uniqueNonEmpty(documents)
	if len(documents) == 0 {
		return nil, validation("at least one document is required", map[string]any{"documents": "required"})
	}
	recipients = uniqueNonEmpty(recipients)
	if len(recipients) == 0 {
		recipients = inv.Invitees
	}

	inv.SharedDocuments = uniqueNonEmpty(append(inv.SharedDocuments, documents...))
	if inv.Status == domain.InvitationStatusLetterIssued {
		inv.Status = domain.InvitationStatusDocumentsShared
	}
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, audit.ActionDocumentsShared, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{
		"documents":  documents,
		"recipients": recipients,
	})
	s.publish(ctx, actor, events.EventDocumentsShared, inv)

	result := &InvitationResult{Invitation: inv}
	for _, recipient := range recipients {
		for _, document := range documents {
			if err := s.chat.SendChatAttachment(ctx, recipient, collab.DocumentHandle{ID: document}); err != nil {
				result.Warnings = append(result.Warnings, s.warn("chat_delivery_failed", err))
				s.audit.Record(ctx, audit.ActionChatDeliveryFailed, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{
					"recipient": recipient,
					"document":  document,
					"error":     err.Error(),
				})
			}
		}
	}
	return result, nil
}

// CancelInvitation terminates the invitation. Canceling twice is an error.
func (s *InvitationService) CancelInvitation(ctx context.Context, actor *domain.User, id string) (*domain.Invitation, error) {
	const action = "invitation.cancel"
	inv, err := s.loadManaged(ctx, actor, id, action)
	if err != nil {
		return nil, err
	}
	if inv.IsCanceled {
		return nil, domain.ErrAlreadyCanceled
	}
	previous := inv.Status
	inv.IsCanceled = true
	inv.Status = domain.InvitationStatusCanceled
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionInvitationCanceled, actor.ID, domain.TargetInvitation, inv.ID, map[string]any{"previous_status": string(previous)})
	s.publish(ctx, actor, events.EventInvitationCanceled, inv)
	return inv, nil
}

func (s *InvitationService) loadManaged(ctx context.Context, actor *domain.User, id, action string) (*domain.Invitation, error) {
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageInvitation(actor, inv.District) {
		return nil, s.deny(action, "actor may not manage invitations in district "+inv.District)
	}
	return inv, nil
}

func (s *InvitationService) publish(ctx context.Context, actor *domain.User, eventType events.EventType, inv *domain.Invitation) {
	s.publishEvent(ctx, events.Event{
		Type:          eventType,
		AggregateID:   inv.ID,
		AggregateType: domain.TargetInvitation,
		Actor:         actorOf(actor),
		Payload: events.InvitationPayload{
			DisputeID: inv.DisputeID,
			Status:    inv.Status,
			Invitees:  inv.Invitees,
			DateTime:  inv.DateTime,
			Location:  inv.Location,
		},
	})
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
