package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/audit"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/policy"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// AccountService manages registration, suspension and role switching.
type AccountService struct {
	runtime
	users repository.UserRepository
	audit *audit.Recorder
	now   func() time.Time
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	UserRepo   repository.UserRepository
	Audit      *audit.Recorder
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// RegisterInput describes a citizen registration.
type RegisterInput struct {
	FullName    string
	PhoneNumber string
	Email       string
	NationalID  string
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	return &AccountService{
		runtime: newRuntime(deps.Dispatcher, deps.Metrics, deps.Logger),
		users:   deps.UserRepo,
		audit:   deps.Audit,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an active account with the base user role.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.PhoneNumber == "" && input.Email == "" {
		return nil, validation("phone number or email is required", nil)
	}
	for _, contact := range []string{input.PhoneNumber, input.Email} {
		if contact == "" {
			continue
		}
		_, err := s.users.GetByContact(ctx, contact)
		if err == nil {
			return nil, domain.ErrContactTaken
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	user := &domain.User{
		FullName:      input.FullName,
		PhoneNumber:   input.PhoneNumber,
		Email:         input.Email,
		NationalID:    strings.TrimSpace(input.NationalID),
		BaseRole:      domain.RoleUser,
		Level:         &domain.Level{Role: domain.RoleUser},
		AccountStatus: domain.AccountStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns the actor's own account, or any account for administrators.
func (s *AccountService) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := s.gate(actor, "account.read"); err != nil {
		return nil, err
	}
	if id != actor.ID && !policy.CanManageAccounts(actor) {
		return nil, s.deny("account.read", "not your account")
	}
	return s.users.GetByID(ctx, id)
}

// Suspend blocks an account until it is reactivated.
func (s *AccountService) Suspend(ctx context.Context, actor *domain.User, targetID, reason string) (*domain.User, error) {
	const action = "account.suspend"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if !policy.CanManageAccounts(actor) {
		return nil, s.deny(action, "admin role required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validation("suspension reason is required", map[string]any{"reason": "required"})
	}
	if targetID == actor.ID {
		return nil, s.deny(action, "cannot suspend own account")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if policy.TrueRole(target) == domain.RoleSuperAdmin && policy.EffectiveRole(actor) != domain.RoleSuperAdmin {
		return nil, s.deny(action, "only a superadmin may suspend a superadmin")
	}
	if target.AccountStatus == domain.AccountStatusSuspended {
		return nil, domain.ErrAlreadySuspended
	}

	target.AccountStatus = domain.AccountStatusSuspended
	target.Suspension = &domain.Suspension{SuspendedBy: actor.ID, Reason: reason, SuspendedAt: s.now()}
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionAccountSuspended, actor.ID, domain.TargetUser, target.ID, map[string]any{"reason": reason})
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAccountSuspended,
		AggregateID:   target.ID,
		AggregateType: domain.TargetUser,
		Actor:         actorOf(actor),
		Payload:       events.AccountPayload{Status: target.AccountStatus, Reason: reason},
	})
	return target, nil
}

// Reactivate lifts a suspension.
func (s *AccountService) Reactivate(ctx context.Context, actor *domain.User, targetID string) (*domain.User, error) {
	const action = "account.reactivate"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if !policy.CanManageAccounts(actor) {
		return nil, s.deny(action, "admin role required")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.AccountStatus != domain.AccountStatusSuspended {
		return nil, domain.ErrNotSuspended
	}
	previous := target.Suspension

	target.AccountStatus = domain.AccountStatusActive
	target.Suspension = nil
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	details := map[string]any{}
	if previous != nil {
		details["previous_reason"] = previous.Reason
		details["suspended_by"] = previous.SuspendedBy
	}
	s.audit.Record(ctx, audit.ActionAccountReactivated, actor.ID, domain.TargetUser, target.ID, details)
	s.publishEvent(ctx, events.Event{
		Type:          events.EventAccountReactivated,
		AggregateID:   target.ID,
		AggregateType: domain.TargetUser,
		Actor:         actorOf(actor),
		Payload:       events.AccountPayload{Status: target.AccountStatus},
	})
	return target, nil
}

// SwitchAccount makes a privileged actor operate under a restricted role.
func (s *AccountService) SwitchAccount(ctx context.Context, actor *domain.User, target domain.Role) (*domain.User, error) {
	const action = "account.switch"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if !policy.CanSwitchAccount(actor) {
		return nil, s.deny(action, "only administrators may switch accounts")
	}
	if err := policy.ValidateSwitchTarget(target); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	trueRole := policy.TrueRole(user)
	level := &domain.Level{Role: target, AccountRole: &trueRole, IsSwitch: true}
	if user.Level != nil {
		level.District = user.Level.District
	}
	user.Level = level
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionAccountSwitched, actor.ID, domain.TargetUser, user.ID, map[string]any{
		"account_role":  string(trueRole),
		"switched_role": string(target),
	})
	return user, nil
}

// RestoreAccount ends a switch and restores the actor's true role.
func (s *AccountService) RestoreAccount(ctx context.Context, actor *domain.User) (*domain.User, error) {
	const action = "account.restore"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user.Level == nil || !user.Level.IsSwitch {
		return user, nil
	}

	restored := policy.TrueRole(user)
	user.Level = &domain.Level{Role: restored, District: user.Level.District}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionAccountRestored, actor.ID, domain.TargetUser, user.ID, map[string]any{"role": string(restored)})
	return user, nil
}

// AssignLevel sets a user's role and district.
func (s *AccountService) AssignLevel(ctx context.Context, actor *domain.User, targetID string, role domain.Role, district *string) (*domain.User, error) {
	const action = "account.assign_level"
	if err := s.gate(actor, action); err != nil {
		return nil, err
	}
	if !policy.CanManageAccounts(actor) {
		return nil, s.deny(action, "admin role required")
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if !policy.IsRestricted(role) && policy.EffectiveRole(actor) != domain.RoleSuperAdmin {
		return nil, s.deny(action, "only a superadmin may grant administrative roles")
	}
	district = trimmed(district)
	if district != nil && *district == "" {
		district = nil
	}
	if role == domain.RoleManager && district == nil {
		return nil, validation("managers require a district", map[string]any{"district": "required"})
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if policy.TrueRole(target) == domain.RoleSuperAdmin && policy.EffectiveRole(actor) != domain.RoleSuperAdmin {
		return nil, s.deny(action, "only a superadmin may change a superadmin")
	}

	previous := policy.TrueRole(target)
	target.Level = &domain.Level{Role: role, District: district}
	if err := s.users.Update(ctx, target); err != nil {
		return nil, err
	}

	details := map[string]any{"previous_role": string(previous), "role": string(role)}
	if district != nil {
		details["district"] = *district
	}
	s.audit.Record(ctx, audit.ActionAccountLevelAssigned, actor.ID, domain.TargetUser, target.ID, details)
	return target, nil
}
