package application

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies a failure so callers can branch without inspecting messages.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindConflict            Kind = "conflict"
	KindNotFound            Kind = "not_found"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindDownstreamFailure   Kind = "downstream_failure"
	KindUnexpected          Kind = "unexpected"
)

var (
	// ErrValidation matches malformed input and unavailable panelists.
	ErrValidation = errors.New("application: validation failed")
	// ErrConflict matches double-booked candidates and overlapping slots.
	ErrConflict = errors.New("application: conflict")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUpstreamUnavailable matches a directory that could not be reached.
	ErrUpstreamUnavailable = errors.New("application: upstream unavailable")
	// ErrDownstreamFailure matches a notification that could not be published.
	ErrDownstreamFailure = errors.New("application: downstream failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindNotFound:
		return ErrNotFound
	case KindUpstreamUnavailable:
		return ErrUpstreamUnavailable
	case KindDownstreamFailure:
		return ErrDownstreamFailure
	}
	return nil
}

// Error is a business failure tagged with its Kind and the offending entity.
type Error struct {
	Kind    Kind
	Entity  string
	ID      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return e != nil && target != nil && target == e.Kind.sentinel()
}

func notFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Message: strings.ReplaceAll(entity, "_", " ") + " " + id + " not found"}
}

func downstreamFailure(entity, id string, err error) *Error {
	return &Error{Kind: KindDownstreamFailure, Entity: entity, ID: id, Message: "failed to publish notification for " + strings.ReplaceAll(entity, "_", " ") + " " + id, Err: err}
}

// KindOf returns the kind carried by err, or KindUnexpected for untagged errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	for _, kind := range []Kind{KindValidation, KindConflict, KindNotFound, KindUpstreamUnavailable, KindDownstreamFailure} {
		if errors.Is(err, kind.sentinel()) {
			return kind
		}
	}
	return KindUnexpected
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is matches ErrValidation.
func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
