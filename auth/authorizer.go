package auth

import (
	"context"
	"fmt"
)

// Operation is a protected operation and the roles it statically permits.
type Operation struct {
	// Name identifies the operation in logs and metrics (e.g. "household.get").
	Name string

	// Allowed is the declared role set. An empty set permits nobody.
	Allowed RoleSet
}

// NewOperation declares an operation permitting roles.
func NewOperation(name string, roles ...Role) Operation {
	return Operation{Name: name, Allowed: NewRoleSet(roles...)}
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	// Subject is the identity that was denied.
	Subject string

	// Operation is the operation that was denied.
	Operation string

	// Stage is the layer that denied the request.
	Stage Stage

	// Reason explains why access was denied.
	Reason string

	// Cause is ErrInsufficientRole or ErrNotOwner.
	Cause error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q operation=%q stage=%s reason=%q",
		e.Subject, e.Operation, e.Stage, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthzError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// RoleAuthorizer is the coarse authorization layer: can this role ever
// invoke this operation. It carries no route knowledge and no state.
type RoleAuthorizer struct{}

// NewRoleAuthorizer creates a role authorizer.
func NewRoleAuthorizer() RoleAuthorizer {
	return RoleAuthorizer{}
}

// IsAuthorized reports whether id's role is in allowed. Comparison is
// case-insensitive. A zero identity, an empty role or an empty set is never
// authorized.
func (RoleAuthorizer) IsAuthorized(id Identity, allowed RoleSet) bool {
	if id.IsZero() || id.Role == "" {
		return false
	}
	return allowed.Contains(id.Role)
}

// Authorize returns nil if id may invoke op, or an *AuthzError wrapping
// ErrInsufficientRole.
func (a RoleAuthorizer) Authorize(_ context.Context, id Identity, op Operation) error {
	if a.IsAuthorized(id, op.Allowed) {
		return nil
	}
	reason := fmt.Sprintf("role %q not in %s", id.Role, op.Allowed)
	if id.IsZero() {
		reason = "no identity provided"
	}
	return &AuthzError{
		Subject:   id.SubjectID,
		Operation: op.Name,
		Stage:     StageRoleChecked,
		Reason:    reason,
		Cause:     ErrInsufficientRole,
	}
}
