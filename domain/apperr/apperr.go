// Package apperr defines the closed set of failures the gateway reports
// and how each one maps to an HTTP status.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind identifies a failure category.
type Kind string

const (
	KindUpstreamTransport Kind = "upstream_transport" // network, TLS, DNS, body read
	KindUpstreamHTTP      Kind = "upstream_http"      // upstream answered non-2xx
	KindInternal          Kind = "internal"
	KindParse             Kind = "parse"     // rejected local input
	KindNotFound          Kind = "not_found" // includes upstream 404
	KindDeserialization   Kind = "deserialization"
)

// Error is a gateway failure. Message is what clients see.
type Error struct {
	Kind    Kind
	Message string

	// UpstreamStatus is the upstream status code for KindUpstreamHTTP and
	// upstream-originated KindNotFound.
	UpstreamStatus int

	// Path and RawBody are set for KindDeserialization. A nil RawBody means
	// no body was captured.
	Path    string
	RawBody []byte

	Cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status the error renders with.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindUpstreamTransport:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Detail returns supplementary context for the error response. Only
// deserialization failures with a captured body have one.
func (e *Error) Detail() (string, bool) {
	if e.Kind != KindDeserialization || e.RawBody == nil {
		return "", false
	}
	return ExtractDetail(e.RawBody, e.Path), true
}

// Transport wraps a failure to reach the upstream.
func Transport(cause error) *Error {
	return &Error{
		Kind:    KindUpstreamTransport,
		Message: fmt.Sprintf("TfL API request failed: %v", cause),
		Cause:   cause,
	}
}

// FromUpstreamStatus classifies a non-2xx upstream response. 404 becomes
// NotFound; everything else is an upstream HTTP error.
func FromUpstreamStatus(status int, body string) *Error {
	e := &Error{
		Kind:           KindUpstreamHTTP,
		Message:        fmt.Sprintf("HTTP error %d %s: %s", status, http.StatusText(status), body),
		UpstreamStatus: status,
	}
	if status == http.StatusNotFound {
		e.Kind = KindNotFound
	}
	return e
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Parse(format string, args ...any) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// Deserialization reports an upstream body that did not match the expected
// shape. body may be nil.
func Deserialization(path, msg string, body []byte) *Error {
	return &Error{
		Kind:    KindDeserialization,
		Message: fmt.Sprintf("JSON deserialization failed at '%s': %s", path, msg),
		Path:    path,
		RawBody: body,
	}
}

// From maps any error onto the taxonomy. *Error values pass through.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return Transport(err)
	}
	return &Error{Kind: KindInternal, Message: err.Error(), Cause: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
