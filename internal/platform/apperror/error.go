package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindForbidden       Kind = "forbidden"
	KindPersistence     Kind = "persistence_error"
	KindAuth            Kind = "auth_error"
	KindExternalService Kind = "external_service_error"
	KindConfiguration   Kind = "configuration_error"
)

// Auth failure reasons. Credential failures share one generic message so a
// caller cannot tell whether an email exists.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonUnconfirmedAccount = "unconfirmed_account"
	ReasonInactiveAccount    = "inactive_account"
	ReasonRoleMismatch       = "role_mismatch"
	ReasonMFARequired        = "mfa_required"
	ReasonMFAInvalid         = "mfa_invalid"
	ReasonUnauthenticated    = "unauthorized"
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldIssue
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Invalid(message string, fields ...FieldIssue) *Error {
	return &Error{Kind: KindInvalidInput, Code: "validation_error", Message: message, Fields: fields}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "forbidden", Message: message}
}

func Persistence(err error, message string) *Error {
	return &Error{Kind: KindPersistence, Code: "persistence_error", Message: message, Err: err}
}

func Auth(reason string) *Error {
	return &Error{Kind: KindAuth, Code: reason, Message: authMessage(reason)}
}

func External(err error, message string) *Error {
	return &Error{Kind: KindExternalService, Code: "external_service_error", Message: message, Err: err}
}

func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Code: "configuration_error", Message: message}
}

func authMessage(reason string) string {
	switch reason {
	case ReasonUnconfirmedAccount:
		return "account email has not been confirmed"
	case ReasonInactiveAccount:
		return "account is inactive"
	case ReasonRoleMismatch:
		return "account does not have the requested access level"
	case ReasonMFARequired:
		return "mfa code required"
	case ReasonMFAInvalid:
		return "invalid mfa code"
	case ReasonUnauthenticated:
		return "authentication required"
	default:
		return "invalid credentials"
	}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
