package auth

import (
	"context"
	"errors"
	"strings"
)

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// ExtractBearerToken returns the second whitespace-delimited field of an
// Authorization header value. Any run of spaces or tabs separates the
// fields. A missing header, a missing second field or a scheme other than
// Bearer (case-insensitive) yields ErrMissingToken.
func ExtractBearerToken(header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return "", ErrMissingToken
	}
	if !strings.EqualFold(fields[0], BearerScheme) {
		return "", ErrMissingToken
	}
	return fields[1], nil
}

// AuthResult is the result of an authentication attempt.
type AuthResult struct {
	// Authenticated is true if authentication succeeded.
	Authenticated bool

	// Identity is the authenticated identity (only if Authenticated=true).
	Identity Identity

	// Error is the granular failure reason (only if Authenticated=false).
	// It always matches ErrUnauthenticated; callers must not expose which
	// reason it is.
	Error error
}

// AuthSuccess creates a successful authentication result.
func AuthSuccess(id Identity) *AuthResult {
	return &AuthResult{
		Authenticated: true,
		Identity:      id,
	}
}

// AuthFailure creates a failed authentication result.
func AuthFailure(err error) *AuthResult {
	if err == nil {
		err = ErrUnauthenticated
	}
	return &AuthResult{Error: err}
}

// Gate is the request-boundary guard: it extracts the bearer token,
// verifies it, and either produces an Identity or rejects. It is fail-closed
// and has no anonymous fallback.
type Gate struct {
	verifier TokenVerifier
	hooks    []FailureHook
}

// FailureHook observes authentication failures, e.g. for logging.
// Hooks must not write to the response.
type FailureHook func(ctx context.Context, err error)

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithFailureHook registers a hook called for every failed authentication.
func WithFailureHook(h FailureHook) GateOption {
	return func(g *Gate) {
		if h != nil {
			g.hooks = append(g.hooks, h)
		}
	}
}

// NewGate creates a gate backed by verifier.
func NewGate(verifier TokenVerifier, opts ...GateOption) *Gate {
	g := &Gate{verifier: verifier}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate evaluates an Authorization header value.
func (g *Gate) Authenticate(ctx context.Context, header string) *AuthResult {
	token, err := ExtractBearerToken(header)
	if err != nil {
		return g.fail(ctx, err)
	}

	if g.verifier == nil {
		return g.fail(ctx, ErrInvalidSignature)
	}

	id, err := g.verifier.Verify(token)
	if err != nil {
		return g.fail(ctx, err)
	}
	if id.IsZero() {
		return g.fail(ctx, ErrMalformedToken)
	}

	return AuthSuccess(id)
}

func (g *Gate) fail(ctx context.Context, err error) *AuthResult {
	if !errors.Is(err, ErrUnauthenticated) {
		err = authnFailure(ErrInvalidSignature, err)
	}
	for _, h := range g.hooks {
		h(ctx, err)
	}
	return AuthFailure(err)
}
