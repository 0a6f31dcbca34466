package handler

import (
	"github.com/sumire/issuedesk/internal/validation"
)

// AppValidator adapts the validation package to echo's Validator interface.
type AppValidator struct {
	validator *validation.Validator
}

// NewAppValidator creates a new AppValidator.
func NewAppValidator() *AppValidator {
	return &AppValidator{validator: validation.New()}
}

// Validate validates a struct using go-playground/validator tags.
func (v *AppValidator) Validate(i any) error {
	return v.validator.Struct(i)
}
