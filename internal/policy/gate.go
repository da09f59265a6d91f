package policy

import (
	"github.com/spec-kit/dispute-service/internal/domain"
)

// CheckAccountStatus rejects suspended accounts before any protected operation runs.
func CheckAccountStatus(actor *domain.User) error {
	if actor == nil {
		return domain.Forbidden("access", "no actor")
	}
	switch actor.AccountStatus {
	case domain.AccountStatusActive:
		return nil
	case domain.AccountStatusSuspended:
		err := &domain.AccountSuspendedError{}
		if actor.Suspension != nil {
			err.Reason = actor.Suspension.Reason
			err.SuspendedAt = actor.Suspension.SuspendedAt
		}
		return err
	default:
		return domain.Forbidden("access", "unknown account status")
	}
}

// CanManageAccounts reports whether the actor may suspend, reactivate or re-level accounts.
func CanManageAccounts(actor *domain.User) bool {
	return HasAnyRole(actor, domain.RoleAdmin, domain.RoleSuperAdmin)
}
