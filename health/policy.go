package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/gridgate/auth"
)

// selfCheckSubject is the subject of the self-test token. It never leaves the
// process.
const selfCheckSubject = "gridgate-health-check"

// TokenCodec is the part of auth.TokenCodec the policy check needs.
type TokenCodec interface {
	auth.TokenIssuer
	auth.TokenVerifier
}

// PolicyChecker proves the configured access policy is usable by issuing a
// token and verifying it again.
type PolicyChecker struct {
	codec TokenCodec
}

// NewPolicyChecker creates a checker for codec.
func NewPolicyChecker(codec TokenCodec) *PolicyChecker {
	return &PolicyChecker{codec: codec}
}

// Name returns "token_policy".
func (c *PolicyChecker) Name() string {
	return "token_policy"
}

// Check issues and verifies a short-lived self-check token. Failure details name
// the failing step only; the token itself is discarded.
func (c *PolicyChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	if c.codec == nil {
		return Unhealthy("no token codec configured", ErrCheckFailed)
	}

	token, err := c.codec.Issue(selfCheckSubject, auth.RoleUser, "", "")
	if err != nil {
		return Unhealthy("token issue failed", fmt.Errorf("%w: %s", ErrCheckFailed, auth.FailureCode(err)))
	}

	id, err := c.codec.Verify(token)
	if err != nil {
		return Unhealthy("token verify failed", fmt.Errorf("%w: %s", ErrCheckFailed, auth.FailureCode(err)))
	}
	if id.SubjectID != selfCheckSubject {
		return Unhealthy("token round trip mismatch", ErrCheckFailed)
	}

	return Healthy("token policy usable").WithDetails(map[string]any{
		"issuer":   id.Issuer,
		"lifetime": id.ExpiresAt.Sub(id.IssuedAt).String(),
	})
}

var _ Checker = (*PolicyChecker)(nil)
