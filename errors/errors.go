// Package errors defines the failure taxonomy shared by the messaging core
// and its transport layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// Kind classifies chat-level failures so transports can decide what the
// caller is allowed to see.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindRateLimit
	KindStorage
	KindTransport
)

// Error carries a kind plus the message a caller may see. Cause holds the
// underlying failure for logs only, never for replies.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimit, Msg: msg}
}

func Storage(msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Cause: cause}
}

func Transport(msg string, cause error) *Error {
	return &Error{Kind: KindTransport, Msg: msg, Cause: cause}
}

// KindOf classifies any error. Plain errors map to KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage extracts the text a caller may be shown. Plain errors fall
// back to a generic message so internals never leak.
func UserMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}
