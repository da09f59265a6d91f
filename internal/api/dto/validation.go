package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/spec-kit/dispute-service/pkg/util"
)

// Validatable is implemented by every request payload.
type Validatable interface {
	Validate() error
}

// Check validates req and converts ozzo errors into the VALIDATION_FAILED envelope.
func Check(req Validatable) error {
	err := req.Validate()
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]any, len(fieldErrs))
		for field, fieldErr := range fieldErrs {
			details[field] = fieldErr.Error()
		}
		return apperrors.NewValidationError("invalid payload", details)
	}
	return apperrors.NewValidationError(err.Error(), nil)
}
