// Package errs defines the error taxonomy shared by the webhook pipeline.
package errs

import (
	"errors"
	"fmt"
)

// ErrDuplicateEvent signals that a platform event was already ingested.
// It is a soft condition: callers skip the event instead of failing.
var ErrDuplicateEvent = errors.New("duplicate event")

// ConfigurationError indicates missing configuration or missing page context
// required to complete an operation. Fatal for the current operation.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// NewConfigurationError builds a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates a referenced entity was absent when required.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFoundError builds a NotFoundError for the given resource and id.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// TransportError indicates an external API call failed (network error, bad
// token, non-2xx response). It propagates without retry.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport error: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDuplicate reports whether err signals an already-ingested event.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEvent)
}

// AuthStatus reports whether err is a TransportError carrying an HTTP status
// that indicates an invalid or expired access token.
func AuthStatus(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode == 401 || te.StatusCode == 403
}
