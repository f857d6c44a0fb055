// Package foundation holds small building blocks shared by the configuration
// and command layers.
package foundation

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docdraft/internal/foundation/errors"
)

// FieldError represents a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (fe FieldError) Error() string {
	if fe.Field != "" {
		return fmt.Sprintf("field '%s': %s", fe.Field, fe.Message)
	}
	return fe.Message
}

// ValidationResult accumulates field errors.
type ValidationResult struct {
	Errors []FieldError
}

// Valid reports whether no errors were recorded.
func (vr *ValidationResult) Valid() bool { return len(vr.Errors) == 0 }

// Add records a failure for field.
func (vr *ValidationResult) Add(field, code, message string) {
	vr.Errors = append(vr.Errors, FieldError{Field: field, Code: code, Message: message})
}

// Require records a "required" failure when value is blank.
func (vr *ValidationResult) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		vr.Add(field, "required", "must be set")
	}
}

// OneOf records a failure when value is not among allowed.
func OneOf[T comparable](vr *ValidationResult, field string, value T, allowed ...T) {
	for _, a := range allowed {
		if a == value {
			return
		}
	}
	vr.Add(field, "one_of", fmt.Sprintf("must be one of %v, got %v", allowed, value))
}

// ToError converts the result into a configuration error, or nil when valid.
func (vr *ValidationResult) ToError() error {
	if vr.Valid() {
		return nil
	}
	messages := make([]string, 0, len(vr.Errors))
	fields := make([]string, 0, len(vr.Errors))
	for _, err := range vr.Errors {
		messages = append(messages, err.Error())
		fields = append(fields, err.Field)
	}
	return errors.ConfigError("invalid configuration: "+strings.Join(messages, "; ")).
		WithContext("fields", fields).Build()
}
