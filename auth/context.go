package auth

import (
	"context"
)

// Context keys for auth-related values.
type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity returns a new context carrying a copy of id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// ok is false if the request never passed the gate.
func IdentityFromContext(ctx context.Context) (id Identity, ok bool) {
	id, ok = ctx.Value(identityKey).(Identity)
	if ok && id.IsZero() {
		return Identity{}, false
	}
	return id, ok
}

// SubjectFromContext retrieves the subject id from the context.
// Returns empty string if no identity is present.
func SubjectFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.SubjectID
}

// RoleFromContext retrieves the role from the context.
// Returns empty role if no identity is present.
func RoleFromContext(ctx context.Context) Role {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
