package auth

import "context"

// Stage is a step in one request's authorization lifecycle. Transitions
// are strictly forward; StageDenied is terminal.
type Stage int

const (
	StageUnauthenticated Stage = iota
	StageAuthenticated
	StageRoleChecked
	StageOwnershipChecked
	StageAuthorized
	StageDenied
)

func (s Stage) String() string {
	switch s {
	case StageUnauthenticated:
		return "unauthenticated"
	case StageAuthenticated:
		return "authenticated"
	case StageRoleChecked:
		return "role_checked"
	case StageOwnershipChecked:
		return "ownership_checked"
	case StageAuthorized:
		return "authorized"
	case StageDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Guard is one authorization layer.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Check returns nil to allow, or an error matching ErrForbidden.
type Guard interface {
	Check(ctx context.Context, id Identity) error
}

// RoleGuard is the role layer bound to one operation.
type RoleGuard struct {
	Authorizer RoleAuthorizer
	Operation  Operation
}

// Check authorizes id for the guarded operation.
func (g RoleGuard) Check(ctx context.Context, id Identity) error {
	return g.Authorizer.Authorize(ctx, id, g.Operation)
}

// OwnerGuard is the ownership layer bound to one loaded resource.
type OwnerGuard struct {
	Policy    OwnershipPolicy
	Operation string
	Resource  OwnedResource
}

// Check authorizes id for the guarded resource.
func (g OwnerGuard) Check(ctx context.Context, id Identity) error {
	err := g.Policy.Check(ctx, id, g.Resource)
	if authz, ok := err.(*AuthzError); ok && authz.Operation == "" {
		authz.Operation = g.Operation
	}
	return err
}

// Chain evaluates guards in order and stops at the first denial. An empty
// chain denies, so a forgotten guard list never grants access.
type Chain []Guard

// NewChain builds a chain from guards, skipping nils.
func NewChain(guards ...Guard) Chain {
	c := make(Chain, 0, len(guards))
	for _, g := range guards {
		if g != nil {
			c = append(c, g)
		}
	}
	return c
}

// Check runs every guard until one denies.
func (c Chain) Check(ctx context.Context, id Identity) error {
	if len(c) == 0 {
		return &AuthzError{
			Subject: id.SubjectID,
			Stage:   StageDenied,
			Reason:  "no guards configured",
			Cause:   ErrInsufficientRole,
		}
	}
	for _, g := range c {
		if err := g.Check(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Ensure guards implement Guard
var (
	_ Guard = RoleGuard{}
	_ Guard = OwnerGuard{}
	_ Guard = Chain(nil)
)
