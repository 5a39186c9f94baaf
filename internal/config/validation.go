package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation failure with field context.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors collects zero or more ValidationError values.
type ValidationErrors []ValidationError

// Error implements the error interface for a batch of validation errors.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors reports whether any validation errors were collected.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add appends a new validation error.
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{Field: field, Value: val, Message: message})
}

// ValidateRequired checks that a required string field is non-empty.
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("is required for %s", entityType)}
	}
	return nil
}

// ValidateOneOf checks that value is a member of allowed.
func ValidateOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))}
}

// ValidateEntityName validates a bridge/route identifier's basic shape.
func ValidateEntityName(name, entityType string) error {
	if err := ValidateRequired("name", name, entityType); err != nil {
		return err
	}
	if strings.Contains(name, " ") {
		return ValidationError{Field: "name", Value: name, Message: "cannot contain spaces"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "name", Value: name, Message: "must not exceed 100 characters"}
	}
	return nil
}

// FormatValidationError wraps err with consistent "validation failed for X"
// framing for logging/error surfaces.
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}
	if entityName != "" {
		return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}
