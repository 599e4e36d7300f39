package auth

import "context"

// OwnedResource is anything with an owner comparable to Identity.SubjectID.
type OwnedResource interface {
	Owner() string
}

// OwnerRef adapts a bare owner id (e.g. a user id path parameter) to
// OwnedResource.
type OwnerRef string

// Owner returns the referenced owner id.
func (r OwnerRef) Owner() string {
	return string(r)
}

// OwnershipPolicy is the fine authorization layer for per-instance
// operations: admins may act on anything, everyone else only on resources
// they own. Whether an absent resource is a 404 or a 403 is the caller's
// decision; this policy only answers for a resource it is given.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates an ownership policy.
func NewOwnershipPolicy() OwnershipPolicy {
	return OwnershipPolicy{}
}

// CanAccess reports whether id may act on res.
func (OwnershipPolicy) CanAccess(id Identity, res OwnedResource) bool {
	if id.IsZero() || res == nil {
		return false
	}
	if id.IsAdmin() {
		return true
	}
	owner := res.Owner()
	return owner != "" && owner == id.SubjectID
}

// Check returns nil if id may act on res, or an *AuthzError wrapping
// ErrNotOwner.
func (p OwnershipPolicy) Check(_ context.Context, id Identity, res OwnedResource) error {
	if p.CanAccess(id, res) {
		return nil
	}
	reason := "subject is not the resource owner"
	if res == nil {
		reason = "no resource provided"
	}
	return &AuthzError{
		Subject: id.SubjectID,
		Stage:   StageOwnershipChecked,
		Reason:  reason,
		Cause:   ErrNotOwner,
	}
}
