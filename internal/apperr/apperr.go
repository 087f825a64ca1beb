// Package apperr defines the error kinds surfaced by the generation pipeline.
// Every I/O failure that leaves a component is one of these types.
package apperr

import (
	"errors"
	"fmt"
)

// Kind names an error category for logs and metrics.
type Kind string

const (
	KindExternalAPI   Kind = "external_api"
	KindTimeout       Kind = "timeout"
	KindStorage       Kind = "storage"
	KindConfiguration Kind = "configuration"
	KindParsing       Kind = "parsing"
	KindInternal      Kind = "internal"
)

// ExternalAPIError is returned when an upstream provider fails or returns
// unusable data.
type ExternalAPIError struct {
	Provider string
	Status   int // HTTP status, 0 when unknown
	Message  string
	Err      error
}

func (e *ExternalAPIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d): %s", e.Provider, e.Status, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExternalAPIError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *ExternalAPIError) Kind() Kind { return KindExternalAPI }

// TimeoutError is returned when a bounded external call exceeds its budget.
type TimeoutError struct {
	TimeoutMs int64
	Message   string
	Err       error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timeout after %dms: %s", e.TimeoutMs, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *TimeoutError) Kind() Kind { return KindTimeout }

// StorageError is returned when a blob or row operation fails.
type StorageError struct {
	Op      string
	Key     string
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("storage %s %q: %s", e.Op, e.Key, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *StorageError) Kind() Kind { return KindStorage }

// ConfigurationError is returned for invalid or missing configuration.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Message }

// Kind implements Kinded.
func (e *ConfigurationError) Kind() Kind { return KindConfiguration }

// ParsingError is returned when an external value cannot be decoded.
type ParsingError struct {
	RawValue string
	Message  string
	Err      error
}

func (e *ParsingError) Error() string {
	msg := fmt.Sprintf("parse %q: %s", truncate(e.RawValue, 64), e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParsingError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *ParsingError) Kind() Kind { return KindParsing }

// InternalError wraps unexpected failures, including recovered panics.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return "internal: " + e.Message + ": " + e.Err.Error()
	}
	return "internal: " + e.Message
}

func (e *InternalError) Unwrap() error { return e.Err }

// Kind implements Kinded.
func (e *InternalError) Kind() Kind { return KindInternal }

// Kinded is implemented by every error type of this package.
type Kinded interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the first Kinded error in err's chain, or
// KindInternal when err carries none.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// External builds an ExternalAPIError.
func External(provider string, status int, message string, err error) error {
	return &ExternalAPIError{Provider: provider, Status: status, Message: message, Err: err}
}

// Storage builds a StorageError.
func Storage(op, key, message string, err error) error {
	return &StorageError{Op: op, Key: key, Message: message, Err: err}
}

// Configuration builds a ConfigurationError.
func Configuration(format string, args ...any) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// Parsing builds a ParsingError.
func Parsing(raw, message string, err error) error {
	return &ParsingError{RawValue: raw, Message: message, Err: err}
}

// Internal builds an InternalError.
func Internal(message string, err error) error {
	return &InternalError{Message: message, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
