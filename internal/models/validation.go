package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks rejected user input. Every ValidationError unwraps to it.
var ErrValidation = errors.New("validation failed")

// ValidationError describes one invalid field.
type ValidationError struct {
	// Field is the dot-separated name of the invalid value.
	Field string

	// Message describes what's wrong.
	Message string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes both ErrValidation and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors struct {
	Errors []*ValidationError
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is and errors.As see each collected failure.
func (e *ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		out = append(out, err)
	}
	return out
}

// AddMessage records a failure for field.
func (e *ValidationErrors) AddMessage(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// Add records a failure for field caused by err.
func (e *ValidationErrors) Add(field string, err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: err.Error(), Err: err})
}

// Err returns nil when nothing was recorded, the single error when there is one,
// and the collection otherwise.
func (e *ValidationErrors) Err() error {
	switch len(e.Errors) {
	case 0:
		return nil
	case 1:
		return e.Errors[0]
	}
	return e
}
