package domain

import "time"

// Role enumerates permission roles. The set is closed; anything else is invalid.
type Role string

const (
	RoleUser       Role = "user"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Valid reports whether the role belongs to the known set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Level is the persisted authorization state of a user.
type Level struct {
	Role        Role
	AccountRole *Role
	IsSwitch    bool
	District    *string
}

// Suspension carries the details recorded when an account is suspended.
type Suspension struct {
	SuspendedBy string
	Reason      string
	SuspendedAt time.Time
}

// User is an actor of the system: a citizen, a district manager or an administrator.
type User struct {
	ID            string
	FullName      string
	PhoneNumber   string
	Email         string
	NationalID    string
	BaseRole      Role
	Level         *Level
	AccountStatus AccountStatus
	Suspension    *Suspension
	Revision      int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DistrictValue returns the assigned district or an empty string.
func (u *User) DistrictValue() string {
	if u == nil || u.Level == nil || u.Level.District == nil {
		return ""
	}
	return *u.Level.District
}
