package common

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// HTTPStatus returns the status code a transport should answer with.
// NotFound and Conflict map to 400 so that callers cannot probe for the
// existence of accounts.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindNotFound, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a service-level error carrying a stable code (e.g. "UserExists")
// and the kind used by transports. Two Errors match under errors.Is when
// their codes are equal, so wrapped causes do not break sentinel checks.
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Err: cause}
}

func newError(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

var (
	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrVersionConflict     = errors.New("version conflict")
	ErrDuplicateUsername   = errors.New("duplicate username")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")

	// Token codec errors. Every decode failure collapses into ErrInvalidToken.
	ErrInvalidToken = errors.New("invalid token")
)

// Validation errors.
var (
	ErrBadRequest            = newError(KindValidation, "BadRequest")
	ErrFieldsMissing         = newError(KindValidation, "FieldsMissing")
	ErrCredentialsMissing    = newError(KindValidation, "CredentialsMissing")
	ErrUsernameInvalid       = newError(KindValidation, "UsernameInvalid")
	ErrPasswordTooWeak       = newError(KindValidation, "PasswordTooWeak")
	ErrPasswordWrong         = newError(KindValidation, "PasswordWrong")
	ErrRecoveryMethodInvalid = newError(KindValidation, "RecoveryMethodInvalid")
	ErrInvalidRecoveryMethod = newError(KindValidation, "InvalidRecoveryMethod")
	ErrEmailMissingInvalid   = newError(KindValidation, "EmailMissingInvalid")
	ErrInvalidSetting        = newError(KindValidation, "InvalidSetting")
	ErrBalanceInsufficient   = newError(KindValidation, "BalanceInsufficient")
)

// Authentication and authorization errors.
var (
	ErrNoToken          = newError(KindAuthentication, "NoToken")
	ErrNotAuthenticated = newError(KindAuthentication, "NotAuthenticated")
	ErrCredentialsWrong = newError(KindAuthentication, "CredentialsWrong")
	ErrNotAdmin         = newError(KindAuthorization, "NotAdmin")
)

// Lookup and conflict errors.
var (
	ErrReceiverNotFound = newError(KindNotFound, "ReceiverNotFound")
	ErrUserExists       = newError(KindConflict, "UserExists")
)

// ErrInternal is the code reported for storage or notification failures.
var ErrInternal = newError(KindDependency, "InternalError")

// Internal wraps a dependency failure. A nil err yields nil.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return ErrInternal.Wrap(err)
}

// KindOf reports the kind of err; errors outside the taxonomy are
// dependency failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// CodeOf reports the public code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal.Code
}
