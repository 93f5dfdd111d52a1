package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	ErrRequired       = "is required"
	ErrMinItems       = "must contain at least %s item(s)"
	ErrMaxItems       = "must contain at most %s item(s)"
	ErrUniqueItems    = "must not contain duplicate values"
	ErrGreaterThan    = "must be greater than %s"
	ErrDefaultInvalid = "is invalid"
)

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min":
		return fmt.Sprintf(ErrMinItems, err.Param())
	case "max":
		return fmt.Sprintf(ErrMaxItems, err.Param())
	case "unique":
		return ErrUniqueItems
	case "gt":
		return fmt.Sprintf(ErrGreaterThan, err.Param())
	default:
		return ErrDefaultInvalid
	}
}
