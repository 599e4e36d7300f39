package auth

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Role is one of a closed set of roles. New roles are added here, never
// inferred from token content.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// KnownRoles lists every role in the enumeration.
var KnownRoles = []Role{RoleAdmin, RoleUser}

// ParseRole parses s case-insensitively. Values outside the enumeration
// return ErrUnknownRole.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q (known roles: %s)", ErrUnknownRole, s, RoleNames())
	}
	return r, nil
}

// Valid reports whether r is a member of the enumeration (exact, lowercase).
func (r Role) Valid() bool {
	return slices.Contains(KnownRoles, r)
}

// RoleNames returns the known roles as a comma-separated list.
func RoleNames() string {
	names := make([]string, len(KnownRoles))
	for i, r := range KnownRoles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func (r Role) String() string {
	return string(r)
}

func (r Role) normalize() Role {
	return Role(strings.ToLower(string(r)))
}

// RoleSet is the immutable set of roles an operation permits.
// The zero value is empty and permits nobody.
type RoleSet struct {
	roles map[Role]struct{}
}

// NewRoleSet builds a set from roles, lowercasing each member.
// Empty strings are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	set := RoleSet{roles: make(map[Role]struct{}, len(roles))}
	for _, r := range roles {
		r = r.normalize()
		if r == "" {
			continue
		}
		set.roles[r] = struct{}{}
	}
	return set
}

// Contains reports whether r (lowercased) is in the set.
func (s RoleSet) Contains(r Role) bool {
	if len(s.roles) == 0 {
		return false
	}
	r = r.normalize()
	if r == "" {
		return false
	}
	_, ok := s.roles[r]
	return ok
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	return len(s.roles)
}

// Roles returns the members in sorted order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.roles))
	for r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s RoleSet) String() string {
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return "{" + strings.Join(names, ",") + "}"
}
