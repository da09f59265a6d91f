package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrForbidden is returned when policy denies an action.
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadySuspended is returned when suspending a suspended account.
	ErrAlreadySuspended = errors.New("account already suspended")
	// ErrNotSuspended is returned when reactivating an active account.
	ErrNotSuspended = errors.New("account is not suspended")
	// ErrAlreadyCanceled is returned when canceling a canceled invitation.
	ErrAlreadyCanceled = errors.New("invitation already canceled")
	// ErrConcurrentModification signals a lost compare-and-set race.
	ErrConcurrentModification = errors.New("record modified concurrently")
	// ErrInvalidRole is returned for an illegal switch or assignment target.
	ErrInvalidRole = errors.New("invalid role")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCode is returned for a wrong, expired or unknown one-time code.
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrTooManyAttempts is returned once a one-time code exhausted its attempts.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrContactTaken is returned when registering a phone number or email already in use.
	ErrContactTaken = errors.New("contact already registered")
)

// ForbiddenError carries the reason for a policy denial.
type ForbiddenError struct {
	Action string
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: forbidden", e.Action)
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Reason)
}

// Is matches ErrForbidden.
func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Forbidden builds a ForbiddenError.
func Forbidden(action, reason string) error {
	return &ForbiddenError{Action: action, Reason: reason}
}

// IllegalTransitionError is returned for a status change outside the legal edge set.
type IllegalTransitionError struct {
	From DisputeStatus
	To   DisputeStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
}

// AccountSuspendedError is returned by the status gate for suspended accounts.
type AccountSuspendedError struct {
	Reason      string
	SuspendedAt time.Time
}

func (e *AccountSuspendedError) Error() string {
	return fmt.Sprintf("account suspended: %s", e.Reason)
}

// InvalidStateError is returned when an invitation operation does not fit its state.
type InvalidStateError struct {
	State     InvitationStatus
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s invitation in state %s", e.Operation, e.State)
}

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports invalid input.
type ValidationError struct {
	Message string
	Fields  map[string]any
}

func (e *ValidationError) Error() string { return e.Message }
