// Package errors provides unified, structured error handling for FlightLedger,
// mapping the error kinds of the core spec (ParseError, ConflictError, NotFound,
// InvalidTransition, CycleError, ConfigError, BackendError) onto one type.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the error kinds named by the core specification.
type Kind string

const (
	KindParse             Kind = "PARSE"
	KindConflict          Kind = "CONFLICT"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindCycle             Kind = "CYCLE"
	KindConfig            Kind = "CONFIG"
	KindTaskFailure       Kind = "TASK_FAILURE"
	KindBackend           Kind = "BACKEND"
)

// LedgerError is a structured error carrying a Kind, a human message, an HTTP
// status (consumed only by the out-of-scope façade), and an optional cause.
type LedgerError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *LedgerError) Unwrap() error { return e.Err }

// WithDetail attaches a diagnostic key/value pair, returning the receiver for
// chaining.
func (e *LedgerError) WithDetail(key string, value any) *LedgerError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause attaches an underlying error, returning the receiver for chaining.
func (e *LedgerError) WithCause(err error) *LedgerError {
	e.Err = err
	return e
}

func New(kind Kind, message string, httpStatus int) *LedgerError {
	return &LedgerError{Kind: kind, Message: message, HTTPStatus: httpStatus}
}

func Wrap(kind Kind, message string, httpStatus int, err error) *LedgerError {
	return &LedgerError{Kind: kind, Message: message, HTTPStatus: httpStatus, Err: err}
}

// Parse builds a ParseError: a payload rejected by a source adapter. Fatal
// for that payload only, never for the pipeline.
func Parse(source, reason string) *LedgerError {
	return New(KindParse, "payload rejected", http.StatusBadRequest).
		WithDetail("source", source).
		WithDetail("reason", reason)
}

// Conflict builds a ConflictError: two concurrent appends raced on the same
// ticket's event_sequence. The caller retries idempotently.
func Conflict(ticketNumber string) *LedgerError {
	return New(KindConflict, "sequence conflict, retry append", http.StatusConflict).
		WithDetail("ticket_number", ticketNumber)
}

// NotFound builds a NotFound error for a missing break/settlement/DAG run.
func NotFound(resource, id string) *LedgerError {
	return New(KindNotFound, "resource not found", http.StatusNotFound).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// InvalidTransition builds an InvalidTransition error: the saga refused a
// transition, leaving no state change and no saga step.
func InvalidTransition(from, action string) *LedgerError {
	return New(KindInvalidTransition, "invalid saga transition", http.StatusConflict).
		WithDetail("from_status", from).
		WithDetail("action", action)
}

// Cycle builds a CycleError raised at DAG construction time.
func Cycle(taskName string) *LedgerError {
	return New(KindCycle, "circular dependency detected", http.StatusInternalServerError).
		WithDetail("task", taskName)
}

// Config builds a ConfigError raised at DAG construction or startup.
func Config(message string) *LedgerError {
	return New(KindConfig, message, http.StatusInternalServerError)
}

// Backend builds a BackendError raised by a remote repository.
func Backend(operation string, err error) *LedgerError {
	return Wrap(KindBackend, "repository operation failed", http.StatusServiceUnavailable, err).
		WithDetail("operation", operation)
}

// Is reports whether err is a LedgerError of the given kind.
func Is(err error, kind Kind) bool {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

// As extracts a *LedgerError from an error chain, if present.
func As(err error) *LedgerError {
	var le *LedgerError
	if errors.As(err, &le) {
		return le
	}
	return nil
}

// HTTPStatus returns the HTTP status code associated with err, defaulting to
// 500 for errors that are not a LedgerError.
func HTTPStatus(err error) int {
	if le := As(err); le != nil {
		return le.HTTPStatus
	}
	return http.StatusInternalServerError
}
