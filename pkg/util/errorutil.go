package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewTooManyRequests(message string) error {
	return NewDomainError("TOO_MANY_REQUESTS", message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts domain and driver errors into a DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &DomainError{Code: fiberCode(fiberErr.Code), Message: fiberErr.Message, HTTPStatus: fiberErr.Code, Err: err}
	}

	var (
		forbidden  *domain.ForbiddenError
		transition *domain.IllegalTransitionError
		suspended  *domain.AccountSuspendedError
		state      *domain.InvalidStateError
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
	)
	switch {
	case errors.As(err, &suspended):
		return &DomainError{
			Code:       "ACCOUNT_SUSPENDED",
			Message:    "account suspended",
			HTTPStatus: http.StatusForbidden,
			Details: map[string]any{
				"reason":       suspended.Reason,
				"suspended_at": suspended.SuspendedAt.UTC().Format(time.RFC3339),
			},
			Err: err,
		}
	case errors.As(err, &forbidden):
		return &DomainError{Code: "FORBIDDEN", Message: forbidden.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.As(err, &transition):
		return &DomainError{
			Code:       "ILLEGAL_TRANSITION",
			Message:    transition.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"from": transition.From, "to": transition.To},
			Err:        err,
		}
	case errors.As(err, &state):
		return &DomainError{
			Code:       "INVALID_STATE",
			Message:    state.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"state": state.State, "operation": state.Operation},
			Err:        err,
		}
	case errors.As(err, &notFound):
		return &DomainError{
			Code:       "NOT_FOUND",
			Message:    fmt.Sprintf("%s not found", notFound.Resource),
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"id": notFound.ID},
			Err:        err,
		}
	case errors.As(err, &validation):
		return &DomainError{Code: "VALIDATION_FAILED", Message: validation.Message, HTTPStatus: http.StatusBadRequest, Details: validation.Fields, Err: err}
	case errors.Is(err, domain.ErrAlreadySuspended):
		return &DomainError{Code: "ALREADY_SUSPENDED", Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrNotSuspended):
		return &DomainError{Code: "NOT_SUSPENDED", Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrAlreadyCanceled):
		return &DomainError{Code: "ALREADY_CANCELED", Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrConcurrentModification):
		return &DomainError{Code: "CONCURRENT_MODIFICATION", Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrInvalidCode):
		return &DomainError{Code: "INVALID_CODE", Message: err.Error(), HTTPStatus: http.StatusUnauthorized, Err: err}
	case errors.Is(err, domain.ErrTooManyAttempts):
		return &DomainError{Code: "TOO_MANY_ATTEMPTS", Message: err.Error(), HTTPStatus: http.StatusTooManyRequests, Err: err}
	case errors.Is(err, domain.ErrContactTaken):
		return &DomainError{Code: "CONTACT_TAKEN", Message: err.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrInvalidRole):
		return &DomainError{Code: "INVALID_ROLE", Message: err.Error(), HTTPStatus: http.StatusUnprocessableEntity, Err: err}
	case errors.Is(err, domain.ErrForbidden):
		return &DomainError{Code: "FORBIDDEN", Message: err.Error(), HTTPStatus: http.StatusForbidden, Err: err}
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, pgx.ErrNoRows):
		return &DomainError{Code: "NOT_FOUND", Message: "resource not found", HTTPStatus: http.StatusNotFound, Err: err}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func fiberCode(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "BAD_REQUEST"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "HTTP_ERROR"
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
