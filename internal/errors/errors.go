package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("operation not allowed in current state")
	ErrPaymentDeclined = errors.New("payment declined")
	ErrUpstream        = errors.New("upstream service unavailable")
	ErrConflict        = errors.New("concurrent modification")
	ErrIdempotency     = errors.New("idempotency key reused with a different request")
	ErrUnauthorized    = errors.New("request could not be authenticated")
)

// ValidationError carries field-level messages for user-correctable input problems.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a message for field; the first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when no field failed, so callers can `return v.OrNil()`.
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown catalog item, add-on or booking.
type NotFoundError struct {
	Kind string
	ID   string
}

func NotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError reports an action that the booking's current status forbids.
type InvalidStateError struct {
	ID     string
	State  string
	Action string
}

func InvalidState(id, state, action string) *InvalidStateError {
	return &InvalidStateError{ID: id, State: state, Action: action}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s booking %s in state %s", e.Action, e.ID, e.State)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// UpstreamError wraps failures of external collaborators. It is the only retryable kind.
type UpstreamError struct {
	Service string
	Timeout bool
	Err     error
}

func Upstream(service string, timeout bool, err error) *UpstreamError {
	return &UpstreamError{Service: service, Timeout: timeout, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s timed out: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUpstream)
}
