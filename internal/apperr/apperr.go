// Package apperr defines the error taxonomy shared by the pipeline.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and the HTTP layer
type Kind uint8

const (
	// KindUnknown is for unclassified errors
	KindUnknown Kind = iota

	// KindValidation is for malformed platform/tone/url input, raised before any I/O
	KindValidation

	// KindNetwork is for transient retrieval failures
	KindNetwork

	// KindTimeout is a network attempt that ran out of time
	KindTimeout

	// KindGeneration is for a failed or empty generation call
	KindGeneration

	// KindExportNotFound is for a surface id with no element behind it
	KindExportNotFound

	// KindExportFailed is for a capture or batch that produced nothing
	KindExportFailed

	// KindNotFound is for a missing stored artifact
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindGeneration:
		return "generation"
	case KindExportNotFound:
		return "export_not_found"
	case KindExportFailed:
		return "export_failed"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified error with an optional operation label and cause
type Error struct {
	kind Kind
	op   string
	msg  string
	orig error
}

// New creates an error of the given kind
func New(kind Kind, op, msg string) *Error {
	return &Error{kind: kind, op: op, msg: msg}
}

// Wrap classifies err; a nil err yields nil
func Wrap(err error, kind Kind, op, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, op: op, msg: msg, orig: err}
}

// Errorf creates an error of the given kind with a formatted message
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{kind: kind, op: op, msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.msg
	if e.op != "" {
		msg = e.op + ": " + msg
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", msg, e.orig)
	}
	return msg
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error { return e.orig }

// Kind returns the classification
func (e *Error) Kind() Kind { return e.kind }

// Op returns the operation label
func (e *Error) Op() string { return e.op }

// KindOf returns the kind of the outermost classified error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNetwork reports whether err is a network failure; timeouts count
func IsNetwork(err error) bool {
	k := KindOf(err)
	return k == KindNetwork || k == KindTimeout
}

// HTTPStatus maps a kind to a response status
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound, KindExportNotFound:
		return http.StatusNotFound
	case KindGeneration, KindNetwork, KindTimeout:
		return http.StatusBadGateway
	case KindExportFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
