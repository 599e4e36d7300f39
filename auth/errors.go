package auth

import (
	"errors"
	"fmt"
)

// Outcome classes. HTTP adapters only ever expose these two.
var (
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrForbidden       = errors.New("auth: access denied")
)

// Authentication failure reasons. Each one matches ErrUnauthenticated under
// errors.Is; the distinct values exist for logs, metrics and tests.
var (
	ErrMissingToken     = &AuthnError{code: "missing_token", msg: "missing bearer token"}
	ErrMalformedToken   = &AuthnError{code: "malformed_token", msg: "malformed token"}
	ErrInvalidSignature = &AuthnError{code: "invalid_signature", msg: "invalid token signature"}
	ErrTokenExpired     = &AuthnError{code: "expired", msg: "token expired"}
	ErrIssuerMismatch   = &AuthnError{code: "issuer_mismatch", msg: "token issuer mismatch"}
)

// Authorization failure reasons, carried as the Cause of an *AuthzError.
var (
	ErrInsufficientRole = errors.New("auth: insufficient role")
	ErrNotOwner         = errors.New("auth: not resource owner")
)

// Configuration and issuance errors.
var (
	ErrInvalidPolicy = errors.New("auth: invalid access policy")
	ErrSigning       = errors.New("auth: token signing failed")
	ErrUnknownRole   = errors.New("auth: unknown role")
)

// AuthnError is an authentication failure reason.
type AuthnError struct {
	code string
	msg  string
}

// Error returns the error message.
func (e *AuthnError) Error() string {
	return "auth: " + e.msg
}

// Code returns a stable, label-safe identifier for the reason.
func (e *AuthnError) Code() string {
	return e.code
}

// Is reports whether this error matches the target.
func (e *AuthnError) Is(target error) bool {
	return target == ErrUnauthenticated
}

// FailureCode returns the reason code for an authentication or
// authorization failure, or "unknown".
func FailureCode(err error) string {
	var authn *AuthnError
	if errors.As(err, &authn) {
		return authn.Code()
	}
	switch {
	case errors.Is(err, ErrInsufficientRole):
		return "insufficient_role"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	default:
		return "unknown"
	}
}

func authnFailure(reason *AuthnError, cause error) error {
	if cause == nil {
		return reason
	}
	return fmt.Errorf("%w: %v", reason, cause)
}
