package auth

import "time"

// Identity is the authenticated caller, rebuilt from a verified token on
// every request. It is a plain value: copies are independent and nothing in
// this package mutates one after Verify returns it.
type Identity struct {
	// SubjectID is the stable caller id, compared against resource owners.
	SubjectID string

	// Role is the caller's role, already parsed into the enumeration.
	Role Role

	// Email and DisplayName are descriptive only.
	Email       string
	DisplayName string

	// Issuer is the token issuer; always equals the configured issuer.
	Issuer string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsZero reports whether id carries no subject. A zero identity is never
// authorized by anything in this package.
func (id Identity) IsZero() bool {
	return id.SubjectID == ""
}

// IsAdmin reports whether id holds the admin role.
func (id Identity) IsAdmin() bool {
	return !id.IsZero() && id.Role.normalize() == RoleAdmin
}

// ExpiredAt reports whether id is expired at t.
func (id Identity) ExpiredAt(t time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return true
	}
	return !t.Before(id.ExpiresAt)
}
