// Package auth is the authentication and authorization core of the gateway.
//
// It verifies caller identity from an HS256-signed bearer token and makes a
// two-layer access decision: a role check against the operation's declared
// role set, followed (for per-instance operations) by an ownership check
// against the already-loaded resource. Every check is a pure function of its
// inputs and an immutable PolicyConfig, so a single TokenCodec, Gate,
// RoleAuthorizer and OwnershipPolicy may be shared by all requests.
//
// The package never loads resources and never talks to storage. Failures are
// returned as typed sentinel errors; HTTP adapters collapse every
// authentication failure into one opaque 401 and every authorization failure
// into one opaque 403.
package auth
