package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/audit"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/policy"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// DisputeService coordinates the case lifecycle.
type DisputeService struct {
	runtime
	disputes     repository.DisputeRepository
	audit        *audit.Recorder
	strictFields bool
}

// DisputeDependencies bundles collaborators for the dispute service.
type DisputeDependencies struct {
	DisputeRepo repository.DisputeRepository
	Audit       *audit.Recorder
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// StrictFields rejects patches touching non-editable fields.
	StrictFields bool
}

// DisputeCreateInput describes intake of a new case.
type DisputeCreateInput struct {
	ClaimantID  string
	DefendantID *string
	UPI         string
	Category    string
	Level       string
	District    string
	Title       string
	Description string
	Attachments []string
	Location    string
}

// DisputePatch carries the requested field changes. Nil means unchanged.
type DisputePatch struct {
	Title       *string
	Description *string
	Attachments *[]string
	Location    *string
	Status      *domain.DisputeStatus
}

// DisputeFilter describes listing parameters.
type DisputeFilter struct {
	District   *string
	Statuses   []domain.DisputeStatus
	UPI        *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// UpdateResult is the outcome of an accepted update.
type UpdateResult struct {
	Dispute *domain.Dispute
	// Version is nil when nothing changed.
	Version *domain.CaseVersion
	// Dropped lists requested fields the actor may not change in the current status.
	Dropped []domain.DisputeField
}

// NewDisputeService constructs the service.
func NewDisputeService(deps DisputeDependencies) *DisputeService {
	return &DisputeService{
		runtime:      newRuntime(deps.Dispatcher, deps.Metrics, deps.Logger),
		disputes:     deps.DisputeRepo,
		audit:        deps.Audit,
		strictFields: deps.StrictFields,
	}
}

// CreateDispute records a new open case together with version 1.
func (s *DisputeService) CreateDispute(ctx context.Context, actor *domain.User, input DisputeCreateInput) (*domain.Dispute, error) {
	const action = "dispute.create"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if missing := missingIntakeFields(input); len(missing) > 0 {
		return nil, validation("missing required fields", missing)
	}
	if strings.TrimSpace(input.ClaimantID) == "" {
		input.ClaimantID = actor.ID
	}
	if input.ClaimantID != actor.ID && !policy.HasAnyRole(actor, domain.RoleManager, domain.RoleAdmin, domain.RoleSuperAdmin) {
		return nil, s.deny(action, "citizens may only file their own claims")
	}
	if policy.EffectiveRole(actor) == domain.RoleManager && input.District != actor.DistrictValue() {
		return nil, s.deny(action, "managers file claims in their own district")
	}

	dispute := &domain.Dispute{
		ClaimantID:  input.ClaimantID,
		DefendantID: input.DefendantID,
		UPI:         strings.TrimSpace(input.UPI),
		Category:    input.Category,
		Level:       input.Level,
		District:    strings.TrimSpace(input.District),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Attachments: append([]string{}, input.Attachments...),
		Location:    input.Location,
		Status:      domain.DisputeStatusOpen,
		CreatedBy:   actor.ID,
	}
	initial := &domain.CaseVersion{
		Changes:   intakeChanges(dispute),
		ChangedBy: actor.ID,
		Reason:    "intake",
	}
	if err := s.disputes.Create(ctx, dispute, initial); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionDisputeCreated, actor.ID, domain.TargetDispute, dispute.ID, map[string]any{
		"upi":      dispute.UPI,
		"district": dispute.District,
	})
	s.publishEvent(ctx, events.Event{
		Type:          events.EventDisputeCreated,
		AggregateID:   dispute.ID,
		AggregateType: domain.TargetDispute,
		Actor:         actorOf(actor),
		Payload:       events.DisputeCreatedPayload{UPI: dispute.UPI, District: dispute.District, Title: dispute.Title},
	})
	return dispute, nil
}

// GetDispute returns a case the actor may see.
func (s *DisputeService) GetDispute(ctx context.Context, actor *domain.User, id string) (*domain.Dispute, error) {
	const action = "dispute.read"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewDispute(actor, dispute) {
		return nil, s.deny(action, "case not visible to actor")
	}
	return dispute, nil
}

// ListDisputes returns the cases visible to the actor.
func (s *DisputeService) ListDisputes(ctx context.Context, actor *domain.User, filter DisputeFilter) ([]domain.Dispute, error) {
	const action = "dispute.list"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	repoFilter := repository.DisputeFilter{
		District:   filter.District,
		Statuses:   filter.Statuses,
		UPI:        filter.UPI,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	switched := actor.Level != nil && actor.Level.IsSwitch
	switch role := policy.EffectiveRole(actor); {
	case switched || role == domain.RoleUser:
		repoFilter.PartyID = &actor.ID
	case role == domain.RoleManager:
		district := actor.DistrictValue()
		if district == "" {
			return nil, s.deny(action, "manager has no district")
		}
		if filter.District != nil && *filter.District != district {
			return nil, s.deny(action, "district outside manager scope")
		}
		repoFilter.District = &district
		repoFilter.IncludePartyID = &actor.ID
	case role == domain.RoleAdmin, role == domain.RoleSuperAdmin:
	default:
		return nil, s.deny(action, "unknown role")
	}
	return s.disputes.List(ctx, repoFilter)
}

// ListVersions returns the version history of a visible case.
func (s *DisputeService) ListVersions(ctx context.Context, actor *domain.User, id string) ([]domain.CaseVersion, error) {
	if _, err := s.GetDispute(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.disputes.ListVersions(ctx, id)
}

// DisputeStats counts cases by status. A nil district is national content.
func (s *DisputeService) DisputeStats(ctx context.Context, actor *domain.User, district *string) (map[domain.DisputeStatus]int, error) {
	const action = "dispute.stats"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	level := policy.ContentLevelNational
	if district != nil {
		level = policy.ContentLevelDistrict
	}
	if !policy.CanViewAggregate(actor, level) {
		return nil, s.deny(action, "aggregate not visible to actor")
	}
	if policy.EffectiveRole(actor) == domain.RoleManager && *district != actor.DistrictValue() {
		return nil, s.deny(action, "district outside manager scope")
	}
	counts, err := s.disputes.CountByStatus(ctx, district)
	if err != nil {
		return nil, err
	}
	for _, status := range []domain.DisputeStatus{
		domain.DisputeStatusOpen,
		domain.DisputeStatusProcessing,
		domain.DisputeStatusResolved,
		domain.DisputeStatusRejected,
		domain.DisputeStatusAppealed,
	} {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

// UpdateDispute applies the editable part of patch and records it as the next version.
func (s *DisputeService) UpdateDispute(ctx context.Context, actor *domain.User, id string, patch DisputePatch, reason string, expectedVersion *int) (*UpdateResult, error) {
	const action = "dispute.update"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewDispute(actor, dispute) {
		return nil, s.deny(action, "case not visible to actor")
	}
	if expectedVersion != nil && *expectedVersion != dispute.CurrentVersion {
		return nil, domain.ErrConcurrentModification
	}

	role := policy.EffectiveRole(actor)
	if !policy.CanEditCase(dispute.Status, role, dispute.CreatedBy, actor.ID, dispute.District, actor.DistrictValue()) {
		return nil, s.deny(action, "case not editable by actor in status "+string(dispute.Status))
	}

	updated := dispute.Clone()
	changes, dropped := applyPatch(updated, patch, policy.EditableFields(dispute.Status, role))
	if len(dropped) > 0 && s.strictFields {
		return nil, s.deny(action, "fields not editable: "+joinFields(dropped))
	}

	var transition *statusChange
	if patch.Status != nil && *patch.Status != dispute.Status {
		change, err := s.checkTransition(actor, dispute, *patch.Status)
		if err != nil {
			return nil, err
		}
		transition = change
		updated.Status = change.to
		changes["status"] = domain.FieldChange{Old: string(change.from), New: string(change.to)}
	}

	if len(changes) == 0 {
		return &UpdateResult{Dispute: dispute, Dropped: dropped}, nil
	}

	version := &domain.CaseVersion{
		Version:   dispute.CurrentVersion + 1,
		Changes:   changes,
		ChangedBy: actor.ID,
		Reason:    strings.TrimSpace(reason),
	}
	if err := s.disputes.SaveVersion(ctx, updated, version); err != nil {
		return nil, err
	}

	fields := changedFields(changes)
	s.audit.Record(ctx, audit.ActionDisputeUpdated, actor.ID, domain.TargetDispute, updated.ID, map[string]any{
		"version": version.Version,
		"fields":  fields,
		"dropped": fieldNames(dropped),
	})
	s.publishEvent(ctx, events.Event{
		Type:          events.EventDisputeUpdated,
		AggregateID:   updated.ID,
		AggregateType: domain.TargetDispute,
		Actor:         actorOf(actor),
		Payload:       events.DisputeUpdatedPayload{Version: version.Version, Fields: fields, Reason: version.Reason},
	})
	if transition != nil {
		s.afterTransition(ctx, actor, updated, transition, version)
	}
	return &UpdateResult{Dispute: updated, Version: version, Dropped: dropped}, nil
}

// TransitionDispute moves a case along the adjudication edges without touching its fields.
func (s *DisputeService) TransitionDispute(ctx context.Context, actor *domain.User, id string, to domain.DisputeStatus, reason string) (*UpdateResult, error) {
	const action = "dispute.transition"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	dispute, err := s.disputes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewDispute(actor, dispute) {
		return nil, s.deny(action, "case not visible to actor")
	}
	change, err := s.checkTransition(actor, dispute, to)
	if err != nil {
		return nil, err
	}

	updated := dispute.Clone()
	updated.Status = change.to
	version := &domain.CaseVersion{
		Version:   dispute.CurrentVersion + 1,
		Changes:   map[string]domain.FieldChange{"status": {Old: string(change.from), New: string(change.to)}},
		ChangedBy: actor.ID,
		Reason:    strings.TrimSpace(reason),
	}
	if err := s.disputes.SaveVersion(ctx, updated, version); err != nil {
		return nil, err
	}
	s.afterTransition(ctx, actor, updated, change, version)
	return &UpdateResult{Dispute: updated, Version: version}, nil
}

// RecordDefendant stores the assigned defendant on the case as a new version.
// The case edit rules apply, so a case under processing only moves for a superadmin.
func (s *DisputeService) RecordDefendant(ctx context.Context, actor *domain.User, dispute *domain.Dispute, defendantID, reason string) (*domain.CaseVersion, error) {
	const action = "dispute.record_defendant"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if !policy.CanEditCase(dispute.Status, policy.EffectiveRole(actor), dispute.CreatedBy, actor.ID, dispute.District, actor.DistrictValue()) {
		return nil, s.deny(action, "case not editable by actor in status "+string(dispute.Status))
	}
	old := any(nil)
	if dispute.DefendantID != nil {
		if *dispute.DefendantID == defendantID {
			return nil, nil
		}
		old = *dispute.DefendantID
	}
	updated := dispute.Clone()
	updated.DefendantID = &defendantID
	version := &domain.CaseVersion{
		Version:   dispute.CurrentVersion + 1,
		Changes:   map[string]domain.FieldChange{"defendant_id": {Old: old, New: defendantID}},
		ChangedBy: actor.ID,
		Reason:    reason,
	}
	if err := s.disputes.SaveVersion(ctx, updated, version); err != nil {
		return nil, err
	}
	*dispute = *updated
	return version, nil
}

type statusChange struct {
	from domain.DisputeStatus
	to   domain.DisputeStatus
}

func (s *DisputeService) checkTransition(actor *domain.User, dispute *domain.Dispute, to domain.DisputeStatus) (*statusChange, error) {
	if !to.Valid() || !policy.IsLegalTransition(dispute.Status, to) {
		return nil, &domain.IllegalTransitionError{From: dispute.Status, To: to}
	}
	if !policy.CanTransition(actor, dispute, to) {
		return nil, s.deny("dispute.transition", "actor may not move case to "+string(to))
	}
	return &statusChange{from: dispute.Status, to: to}, nil
}

func (s *DisputeService) afterTransition(ctx context.Context, actor *domain.User, dispute *domain.Dispute, change *statusChange, version *domain.CaseVersion) {
	s.metrics.RecordTransition(string(change.from), string(change.to))
	s.audit.Record(ctx, audit.ActionDisputeTransitioned, actor.ID, domain.TargetDispute, dispute.ID, map[string]any{
		"from":    string(change.from),
		"to":      string(change.to),
		"version": version.Version,
	})
	parties := []string{dispute.ClaimantID}
	if dispute.DefendantID != nil {
		parties = append(parties, *dispute.DefendantID)
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventDisputeStatusChanged,
		AggregateID:   dispute.ID,
		AggregateType: domain.TargetDispute,
		Actor:         actorOf(actor),
		Payload: events.DisputeStatusChangedPayload{
			OldStatus: change.from,
			NewStatus: change.to,
			Version:   version.Version,
			Reason:    version.Reason,
			Parties:   parties,
		},
	})
}

// applyPatch writes the allowed fields of patch into d and returns the diff
// plus the requested fields that were not allowed.
func applyPatch(d *domain.Dispute, patch DisputePatch, editable []domain.DisputeField) (map[string]domain.FieldChange, []domain.DisputeField) {
	allowed := make(map[domain.DisputeField]bool, len(editable))
	for _, field := range editable {
		allowed[field] = true
	}
	changes := map[string]domain.FieldChange{}
	var dropped []domain.DisputeField

	setString := func(field domain.DisputeField, requested *string, current *string) {
		if requested == nil || *requested == *current {
			return
		}
		if !allowed[field] {
			dropped = append(dropped, field)
			return
		}
		changes[string(field)] = domain.FieldChange{Old: *current, New: *requested}
		*current = *requested
	}
	setString(domain.FieldTitle, patch.Title, &d.Title)
	setString(domain.FieldDescription, patch.Description, &d.Description)
	setString(domain.FieldLocation, patch.Location, &d.Location)

	if patch.Attachments != nil && !equalStrings(*patch.Attachments, d.Attachments) {
		if allowed[domain.FieldAttachments] {
			next := append([]string{}, (*patch.Attachments)...)
			changes[string(domain.FieldAttachments)] = domain.FieldChange{Old: d.Attachments, New: next}
			d.Attachments = next
		} else {
			dropped = append(dropped, domain.FieldAttachments)
		}
	}
	return changes, dropped
}

func missingIntakeFields(input DisputeCreateInput) map[string]any {
	missing := map[string]any{}
	for name, value := range map[string]string{"upi": input.UPI, "district": input.District, "title": input.Title} {
		if strings.TrimSpace(value) == "" {
			missing[name] = "required"
		}
	}
	return missing
}

func intakeChanges(d *domain.Dispute) map[string]domain.FieldChange {
	changes := map[string]domain.FieldChange{
		"status":      {Old: nil, New: string(d.Status)},
		"title":       {Old: nil, New: d.Title},
		"description": {Old: nil, New: d.Description},
		"attachments": {Old: nil, New: d.Attachments},
		"location":    {Old: nil, New: d.Location},
		"upi":         {Old: nil, New: d.UPI},
		"district":    {Old: nil, New: d.District},
	}
	if d.DefendantID != nil {
		changes["defendant_id"] = domain.FieldChange{Old: nil, New: *d.DefendantID}
	}
	return changes
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func changedFields(changes map[string]domain.FieldChange) []string {
	fields := make([]string, 0, len(changes))
	for field := range changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func fieldNames(fields []domain.DisputeField) []string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, string(field))
	}
	return names
}

func joinFields(fields []domain.DisputeField) string {
	return strings.Join(fieldNames(fields), ", ")
}
