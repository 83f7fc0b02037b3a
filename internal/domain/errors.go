package domain

import "errors"

type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindDuplicateAccount     Kind = "DuplicateAccount"
	KindUserNotFound         Kind = "UserNotFound"
	KindInvalidCredentials   Kind = "InvalidCredentials"
	KindPasswordMismatch     Kind = "PasswordMismatch"
	KindAccountNotFound      Kind = "AccountNotFound"
	KindAccountAlreadyLinked Kind = "AccountAlreadyLinked"
	KindResetTokenInvalid    Kind = "ResetTokenInvalid"
	KindStoreUnavailable     Kind = "StoreUnavailable"
	KindSessionFailed        Kind = "SessionFailed"
	KindUnauthenticated      Kind = "Unauthenticated"
	KindProviderUnauthorized Kind = "ProviderUnauthorized"
	KindForbidden            Kind = "Forbidden"
	KindRateLimited          Kind = "RateLimited"
	KindInternal             Kind = "Internal"
)

// Error is returned by every entry point of the auth core. Kind is what
// callers see; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so errors.Is(err, ErrDuplicateAccount) works for any
// message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation           = &Error{Kind: KindValidation}
	ErrDuplicateAccount     = &Error{Kind: KindDuplicateAccount, Message: "account with that email address already exists"}
	ErrUserNotFound         = &Error{Kind: KindUserNotFound, Message: "email not found"}
	ErrInvalidCredentials   = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrPasswordMismatch     = &Error{Kind: KindPasswordMismatch, Message: "passwords do not match"}
	ErrAccountNotFound      = &Error{Kind: KindAccountNotFound, Message: "please register with the same email used in your facebook account"}
	ErrAccountAlreadyLinked = &Error{Kind: KindAccountAlreadyLinked, Message: "this facebook account is linked with another account"}
	ErrResetTokenInvalid    = &Error{Kind: KindResetTokenInvalid, Message: "password reset token is invalid or has expired"}
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable, Message: "store unavailable"}
	ErrSessionFailed        = &Error{Kind: KindSessionFailed, Message: "could not establish session"}
	ErrUnauthenticated      = &Error{Kind: KindUnauthenticated, Message: "login required"}
	ErrRateLimited          = &Error{Kind: KindRateLimited, Message: "too many requests, try again later"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "only your own facebook data is available"}
)

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func StoreUnavailable(err error) error {
	return &Error{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}

func SessionFailed(err error) error {
	return &Error{Kind: KindSessionFailed, Message: "could not establish session", Err: err}
}

// KindOf reports the Kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// Operational reports whether err signals an infrastructure fault rather than
// a routine outcome of user input.
func Operational(err error) bool {
	switch KindOf(err) {
	case KindStoreUnavailable, KindSessionFailed, KindInternal:
		return true
	}
	return false
}
