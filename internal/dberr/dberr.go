// Package dberr defines the error taxonomy shared by every layer of tablekit.
//
// Each error type matches its sentinel through errors.Is, so callers can branch
// on the class of failure without caring about the concrete type:
//
//	if errors.Is(err, dberr.ErrConstraint) { ... }
//
// # Classes
//
// ConfigurationError is raised while tables and codecs are declared and is the
// only class allowed to stop a process at startup. DecodeError marks a stored
// value that cannot be mapped back to its domain type. ConstraintViolation
// wraps a key or uniqueness failure reported by the backend. ExecutionError
// covers connectivity, cancellation and timeouts and may be retried by the
// caller. ValidationError is returned when a query is built against a shape
// that does not carry the referenced columns.
package dberr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrDecode        = errors.New("decode error")
	ErrEncode        = errors.New("encode error")
	ErrConstraint    = errors.New("constraint violation")
	ErrExecution     = errors.New("execution error")
	ErrValidation    = errors.New("validation error")
)

// ConfigurationError reports an invalid table, column or codec declaration.
type ConfigurationError struct {
	Subject string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Subject, e.Err)
}

func (e *ConfigurationError) Unwrap() error        { return e.Err }
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for subject.
func Configf(subject, format string, args ...any) error {
	return &ConfigurationError{Subject: subject, Err: fmt.Errorf(format, args...)}
}

// DecodeKind classifies decode failures.
type DecodeKind int

const (
	// Malformed means the raw value has the wrong storage form.
	Malformed DecodeKind = iota
	// UnknownVariant means a sum-type tag has no declared variant.
	UnknownVariant
)

func (k DecodeKind) String() string {
	switch k {
	case UnknownVariant:
		return "unknown variant"
	default:
		return "malformed value"
	}
}

// DecodeError reports a stored value that cannot be decoded.
type DecodeError struct {
	Kind   DecodeKind
	Column string
	Raw    any
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decode ")
	if e.Column != "" {
		b.WriteString(e.Column)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s %v", e.Kind, e.Raw)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error        { return e.Err }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// EncodeError reports a domain value that has no storage representation.
type EncodeError struct {
	Value any
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %v: %v", e.Value, e.Err)
}

func (e *EncodeError) Unwrap() error        { return e.Err }
func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// ConstraintViolation wraps a key or uniqueness failure reported by the backend.
type ConstraintViolation struct {
	Statement string
	Err       error
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation: %v", e.Err)
}

func (e *ConstraintViolation) Unwrap() error        { return e.Err }
func (e *ConstraintViolation) Is(target error) bool { return target == ErrConstraint }

// ExecutionError reports a connectivity, cancellation or timeout failure.
type ExecutionError struct {
	Op        string
	Timeout   bool
	Retryable bool
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error        { return e.Err }
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// ValidationError reports a query composed in violation of its shape.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string        { return "validation error: " + e.Reason }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsRetryable reports whether err is an ExecutionError marked retryable.
func IsRetryable(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee) && ee.Retryable
}
