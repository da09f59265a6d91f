// Package policy holds the pure authorization rules: effective role resolution,
// case and content visibility, field-level edit rights and the account status gate.
package policy

import (
	"github.com/spec-kit/dispute-service/internal/domain"
)

// EffectiveRole returns the role used for authorization decisions.
// A switched actor always operates with its switched role.
func EffectiveRole(actor *domain.User) domain.Role {
	if actor == nil || actor.Level == nil {
		return domain.RoleUser
	}
	if actor.Level.IsSwitch {
		return actor.Level.Role
	}
	if actor.Level.AccountRole != nil {
		return *actor.Level.AccountRole
	}
	return actor.Level.Role
}

// TrueRole returns the actor's underlying privilege, ignoring any switch.
func TrueRole(actor *domain.User) domain.Role {
	if actor == nil || actor.Level == nil {
		return domain.RoleUser
	}
	if actor.Level.AccountRole != nil {
		return *actor.Level.AccountRole
	}
	return actor.Level.Role
}

// CanSwitchAccount reports whether the actor may operate under a lower role.
func CanSwitchAccount(actor *domain.User) bool {
	switch TrueRole(actor) {
	case domain.RoleAdmin, domain.RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// ValidateSwitchTarget only allows downgrading to a restricted role.
func ValidateSwitchTarget(target domain.Role) error {
	switch target {
	case domain.RoleUser, domain.RoleManager:
		return nil
	default:
		return domain.ErrInvalidRole
	}
}

// IsRestricted reports whether the role carries no administrative privilege.
func IsRestricted(role domain.Role) bool {
	return role == domain.RoleUser || role == domain.RoleManager
}

// HasAnyRole reports whether the actor's effective role is one of allowed.
func HasAnyRole(actor *domain.User, allowed ...domain.Role) bool {
	role := EffectiveRole(actor)
	if !role.Valid() {
		return false
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
