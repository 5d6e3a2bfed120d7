package ledger

import (
	"errors"
	"strings"

	"github.com/dvloznov/finance-ledger/internal/money"
)

// Domain errors. Callers match them with errors.Is; infrastructure failures
// are returned wrapped and opaque.
var (
	// ErrValidation marks malformed input. *ValidationError unwraps to it.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent or soft-deleted entity.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor that does not own the referenced account.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateImport marks an import fingerprint that is already taken,
	// whether caught by the pre-check or by the store's unique constraint.
	ErrDuplicateImport = errors.New("duplicate import")

	// ErrInvariantViolation marks a split set that does not sum to its
	// transaction amount at finalize time.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrCurrencyMismatch is money.ErrCurrencyMismatch.
	ErrCurrencyMismatch = money.ErrCurrencyMismatch
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field errors for one input.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// add records a failure for field.
func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil returns e as an error only when it holds at least one field.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// invalid is shorthand for a single-field ValidationError.
func invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
