package auth

import (
	"context"
	"testing"
)

func TestIdentityFromContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := IdentityFromContext(ctx); ok {
		t.Error("IdentityFromContext(empty) ok = true")
	}

	id := Identity{SubjectID: "u1", Role: RoleUser, Email: "u1@example.com"}
	ctx = WithIdentity(ctx, id)

	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("IdentityFromContext() ok = false")
	}
	if got != id {
		t.Errorf("IdentityFromContext() = %+v, want %+v", got, id)
	}
}

func TestIdentityFromContext_ZeroIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Role: RoleAdmin})
	if _, ok := IdentityFromContext(ctx); ok {
		t.Error("zero identity reported as present")
	}
}

func TestSubjectAndRoleFromContext(t *testing.T) {
	if got := SubjectFromContext(context.Background()); got != "" {
		t.Errorf("SubjectFromContext(empty) = %q", got)
	}
	if got := RoleFromContext(context.Background()); got != "" {
		t.Errorf("RoleFromContext(empty) = %q", got)
	}

	ctx := WithIdentity(context.Background(), Identity{SubjectID: "a1", Role: RoleAdmin})
	if got := SubjectFromContext(ctx); got != "a1" {
		t.Errorf("SubjectFromContext() = %q, want a1", got)
	}
	if got := RoleFromContext(ctx); got != RoleAdmin {
		t.Errorf("RoleFromContext() = %q, want admin", got)
	}
}
