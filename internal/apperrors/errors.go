package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindConfigMissing  Kind = "CONFIG_MISSING"
	KindInvalidSession Kind = "INVALID_SESSION"
	KindForbidden      Kind = "FORBIDDEN"
	KindThrottled      Kind = "THROTTLED"
	KindReauthRequired Kind = "REAUTH_REQUIRED"
	KindUpstream       Kind = "UPSTREAM"
)

// Error is the application error type. Message is safe to show to clients,
// Cause is for logs only.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind, so errors.Is(err, apperrors.ErrNotFound) works for any
// not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrConfigMissing  = &Error{Kind: KindConfigMissing}
	ErrInvalidSession = &Error{Kind: KindInvalidSession}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrThrottled      = &Error{Kind: KindThrottled}
	ErrReauthRequired = &Error{Kind: KindReauthRequired}
	ErrUpstream       = &Error{Kind: KindUpstream}
)

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ConfigMissing(msg string) *Error {
	return &Error{Kind: KindConfigMissing, Message: msg}
}

func InvalidSession(msg string, cause error) *Error {
	return &Error{Kind: KindInvalidSession, Message: msg, Cause: cause}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Throttled carries the number of whole seconds the caller should wait.
func Throttled(retryAfter int) *Error {
	return &Error{
		Kind:       KindThrottled,
		Message:    fmt.Sprintf("too many refreshes, retry in %ds", retryAfter),
		RetryAfter: retryAfter,
	}
}

func ReauthRequired(msg string, cause error) *Error {
	return &Error{Kind: KindReauthRequired, Message: msg, Cause: cause}
}

func Upstream(msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Cause: cause}
}

// KindOf returns the kind of err, or "" if err is not an application error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// RetryAfter extracts the retry hint from a throttled error.
func RetryAfter(err error) (int, bool) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind == KindThrottled {
		return appErr.RetryAfter, true
	}
	return 0, false
}
