package service

import (
	"context"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/policy"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// AuditQueryService exposes the audit trail to administrators.
type AuditQueryService struct {
	runtime
	entries repository.AuditRepository
}

// NewAuditQueryService constructs the service.
func NewAuditQueryService(entries repository.AuditRepository) *AuditQueryService {
	return &AuditQueryService{runtime: newRuntime(nil, nil, nil), entries: entries}
}

// History returns the entries recorded for one target.
func (s *AuditQueryService) History(ctx context.Context, actor *domain.User, targetType domain.TargetType, targetID string, limit int) ([]domain.AuditEntry, error) {
	const action = "audit.read"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if !policy.CanManageAccounts(actor) {
		return nil, s.deny(action, "admin role required")
	}
	switch targetType {
	case domain.TargetUser, domain.TargetDispute, domain.TargetInvitation:
	default:
		return nil, validation("unknown target type", map[string]any{"target_type": string(targetType)})
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.entries.ListByTarget(ctx, targetType, targetID, limit)
}
