package weather

import (
	"errors"
	"fmt"
)

// ErrorKind classifies lookup failures.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindTransport
	KindNotFound
	KindEmptyResponse
	KindDecode
)

// String returns a short label suitable for logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTransport:
		return "transport_error"
	case KindNotFound:
		return "not_found"
	case KindEmptyResponse:
		return "empty_response"
	case KindDecode:
		return "decode_error"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by weather lookups.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Sentinels for errors.Is; matching compares Kind only.
var (
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrEmptyResponse = &Error{Kind: KindEmptyResponse}
	ErrDecode        = &Error{Kind: KindDecode}
)

// NewError builds a lookup error of the given kind.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of a lookup error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// UserMessage renders err as the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Error: " + err.Error()
	}
	switch e.Kind {
	case KindInvalidInput:
		if e.Msg != "" {
			return e.Msg
		}
		return "Invalid city name"
	case KindNotFound:
		return "City not found. Please check spelling."
	case KindEmptyResponse:
		return "Error: Data is invalid"
	default:
		msg := e.Msg
		if msg == "" && e.Err != nil {
			msg = e.Err.Error()
		}
		return "Error: " + msg
	}
}
