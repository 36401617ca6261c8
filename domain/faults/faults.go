package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError indicates a missing or unusable server-side setting,
// most commonly the upstream API credential. It is fatal for the request
// that hit it, never for the process.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Setting)
}

// Configuration reports a missing setting by name.
func Configuration(setting string) error {
	return &ConfigurationError{Setting: setting}
}

// ValidationError indicates malformed client input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation reports a malformed input field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UpstreamError indicates a failure from the remote generative-language
// service. Status carries the upstream HTTP status so the transport can
// mirror it; zero means the upstream never answered.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream failure (status %d): %s", e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps a remote service failure.
func Upstream(status int, err error) error {
	return &UpstreamError{Status: status, Err: err}
}

// PermissionError indicates the platform denied access to the capture
// device. Recovery requires a fresh user-initiated open, not a retry.
type PermissionError struct {
	Device string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("access to %s denied", e.Device)
}

// Permission reports a denied capture device.
func Permission(device string) error {
	return &PermissionError{Device: device}
}

// DecodeError indicates a malformed audio payload. The payload is dropped
// and the session continues.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("audio decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode reports a malformed audio payload.
func Decode(reason string, err error) error {
	return &DecodeError{Reason: reason, Err: err}
}

// HTTPStatus maps an error to the HTTP status the transport boundary
// should answer with. Unclassified errors map to 502 because the only
// unclassified failures at that boundary come from the upstream call.
func HTTPStatus(err error) int {
	var (
		confErr     *ConfigurationError
		validErr    *ValidationError
		upstreamErr *UpstreamError
		decodeErr   *DecodeError
	)
	switch {
	case errors.As(err, &validErr), errors.As(err, &decodeErr):
		return http.StatusBadRequest
	case errors.As(err, &confErr):
		return http.StatusInternalServerError
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status >= 400 && upstreamErr.Status < 600 {
			return upstreamErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// UserMessage returns the short, non-technical message surfaced for err at
// the session boundary.
func UserMessage(err error) string {
	var permErr *PermissionError
	var confErr *ConfigurationError
	switch {
	case errors.As(err, &permErr):
		return "Microphone access was denied. Please allow access and reopen the assistant."
	case errors.As(err, &confErr):
		return "The assistant is not configured yet. Please try again later."
	default:
		return "The assistant ran into a problem. Please reopen the session."
	}
}
