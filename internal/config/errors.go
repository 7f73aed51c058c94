package config

import (
	"errors"
	"fmt"
)

var (
	// ErrRulesFileNotFound indicates the rules file does not exist.
	ErrRulesFileNotFound = errors.New("rules file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrMissingRequiredField indicates a required setting is missing.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidValue indicates a setting has an invalid value.
	ErrInvalidValue = errors.New("invalid field value")
)

// ValidationError wraps a configuration validation failure with context.
type ValidationError struct {
	Component string // env, masking, field
	ID        string // variable name or field name
	Field     string // optional
	Err       error
}

// Error returns formatted error message
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s '%s': field '%s': %v", e.Component, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Component, e.ID, e.Err)
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(component, id, field string, err error) *ValidationError {
	return &ValidationError{
		Component: component,
		ID:        id,
		Field:     field,
		Err:       err,
	}
}
