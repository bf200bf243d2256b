// Package apperr defines the service error taxonomy. Every workflow failure
// is classified into one of four kinds so handlers can pick the right HTTP
// status and the alerting path can decide whether the admin needs a mail.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindAuthentication  Kind = "authentication"
	KindExternalService Kind = "external_service"
	KindDatabase        Kind = "database"
)

// Error carries the workflow and step where a failure happened.
type Error struct {
	Kind     Kind
	Workflow string
	Step     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Workflow, e.Step, e.Message, e.Err)
	}
	return fmt.Sprintf("%s/%s: %s", e.Workflow, e.Step, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the kind to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindExternalService:
		return http.StatusBadGateway
	case KindDatabase:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a validation error.
func Validation(workflow, step, message string) *Error {
	return &Error{Kind: KindValidation, Workflow: workflow, Step: step, Message: message}
}

// Authentication builds an authentication error.
func Authentication(workflow, step, message string) *Error {
	return &Error{Kind: KindAuthentication, Workflow: workflow, Step: step, Message: message}
}

// External builds an external-service error wrapping err.
func External(workflow, step, message string, err error) *Error {
	return &Error{Kind: KindExternalService, Workflow: workflow, Step: step, Message: message, Err: err}
}

// Database builds a database error wrapping err.
func Database(workflow, step string, err error) *Error {
	return &Error{Kind: KindDatabase, Workflow: workflow, Step: step, Message: "database operation failed", Err: err}
}

// From extracts an *Error from err, or wraps it as an external-service
// failure under the given workflow.
func From(err error, workflow string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindExternalService, Workflow: workflow, Step: "unknown", Message: "unexpected failure", Err: err}
}

// ShouldAlert reports whether the admin should be emailed about this error.
// Validation and authentication failures are routine and stay in the logs.
func (e *Error) ShouldAlert() bool {
	return e.Kind == KindExternalService || e.Kind == KindDatabase
}
