package service

import (
	"errors"
	"strings"

	"github.com/mrops-br/products-catalog-api/internal/app/validator"
)

// ErrInvalidInput marks caller misuse: nil requests, empty ids and update
// targets that do not exist.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError carries the field rule violations of a rejected request
type ValidationError struct {
	Violations []validator.Violation
}

// Error joins the violation messages
func (e *ValidationError) Error() string {
	return strings.Join(validator.Messages(e.Violations), "; ")
}

// Fields groups the violation messages by field name
func (e *ValidationError) Fields() map[string][]string {
	return validator.FieldMap(e.Violations)
}
