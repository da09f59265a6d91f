package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/policy"
)

var (
	restrictedRoles = []interface{}{domain.RoleUser, domain.RoleManager}
	knownRoles      = []interface{}{domain.RoleUser, domain.RoleManager, domain.RoleAdmin, domain.RoleSuperAdmin}
)

// RegisterRequest payload for citizen registration.
type RegisterRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	NationalID  string `json:"national_id"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required.Error("full_name_required"), validation.Length(2, 120)),
		validation.Field(&r.PhoneNumber,
			validation.When(r.Email == "", validation.Required.Error("phone_or_email_required")),
			validation.Length(8, 20),
		),
		validation.Field(&r.Email, is.EmailFormat.Error("invalid_email_format")),
	)
}

// OTPRequest asks for a one-time code.
type OTPRequest struct {
	Contact string `json:"contact"`
}

func (r OTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Contact, validation.Required.Error("contact_required")),
	)
}

// OTPVerifyRequest exchanges a code for a token.
type OTPVerifyRequest struct {
	Contact string `json:"contact"`
	Code    string `json:"code"`
}

func (r OTPVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Contact, validation.Required.Error("contact_required")),
		validation.Field(&r.Code, validation.Required.Error("code_required"), is.Digit.Error("code_must_be_numeric")),
	)
}

// SwitchRequest selects the restricted role to operate under.
type SwitchRequest struct {
	Role domain.Role `json:"role"`
}

func (r SwitchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required.Error("role_required"), validation.In(restrictedRoles...).Error("invalid_role")),
	)
}

// SuspendRequest carries the suspension reason.
type SuspendRequest struct {
	Reason string `json:"reason"`
}

func (r SuspendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Required.Error("reason_required"), validation.Length(1, 500)),
	)
}

// AssignLevelRequest sets a user's role and district.
type AssignLevelRequest struct {
	Role     domain.Role `json:"role"`
	District *string     `json:"district"`
}

func (r AssignLevelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required.Error("role_required"), validation.In(knownRoles...).Error("invalid_role")),
		validation.Field(&r.District, validation.When(r.Role == domain.RoleManager, validation.Required.Error("district_required"))),
	)
}

// AuthResponse standard response for token issuing endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LevelResponse exposes the authorization state of an account.
type LevelResponse struct {
	Role          domain.Role  `json:"role"`
	AccountRole   *domain.Role `json:"account_role,omitempty"`
	EffectiveRole domain.Role  `json:"effective_role"`
	IsSwitch      bool         `json:"is_switch"`
	District      *string      `json:"district,omitempty"`
}

// SuspensionResponse exposes suspension details.
type SuspensionResponse struct {
	SuspendedBy string    `json:"suspended_by"`
	Reason      string    `json:"reason"`
	SuspendedAt time.Time `json:"suspended_at"`
}

// UserResponse describes an account.
type UserResponse struct {
	ID            string               `json:"id"`
	FullName      string               `json:"full_name"`
	PhoneNumber   string               `json:"phone_number,omitempty"`
	Email         string               `json:"email,omitempty"`
	Level         LevelResponse        `json:"level"`
	AccountStatus domain.AccountStatus `json:"account_status"`
	Suspension    *SuspensionResponse  `json:"suspension,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		FullName:      u.FullName,
		PhoneNumber:   u.PhoneNumber,
		Email:         u.Email,
		AccountStatus: u.AccountStatus,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		Level:         LevelResponse{Role: domain.RoleUser, EffectiveRole: policy.EffectiveRole(u)},
	}
	if u.Level != nil {
		resp.Level.Role = u.Level.Role
		resp.Level.AccountRole = u.Level.AccountRole
		resp.Level.IsSwitch = u.Level.IsSwitch
		resp.Level.District = u.Level.District
	}
	if u.Suspension != nil {
		resp.Suspension = &SuspensionResponse{
			SuspendedBy: u.Suspension.SuspendedBy,
			Reason:      u.Suspension.Reason,
			SuspendedAt: u.Suspension.SuspendedAt,
		}
	}
	return resp
}

// AuditEntryResponse describes one audit record.
type AuditEntryResponse struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	ActorID    string            `json:"actor_id"`
	TargetType domain.TargetType `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Details    map[string]any    `json:"details"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewAuditEntryResponses maps audit entries.
func NewAuditEntryResponses(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:         e.ID,
			Action:     e.Action,
			ActorID:    e.ActorID,
			TargetType: e.TargetType,
			TargetID:   e.TargetID,
			Details:    e.Details,
			Timestamp:  e.Timestamp,
		})
	}
	return out
}
