package auth

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTokenLifetime is the process-wide token lifetime.
	DefaultTokenLifetime = time.Hour

	// MinSecretLength is the minimum HS256 key length in bytes.
	MinSecretLength = 32
)

// Development fallbacks that must never reach a running process.
var (
	insecureSecrets = map[string]bool{"123": true, "secret": true, "changeme": true}
	insecureIssuers = map[string]bool{"none": true}
)

// PolicyConfig is the process-wide access policy: signing secret, issuer
// and token lifetime. It is built once by NewPolicyConfig and has no
// setters; rotating the secret means restarting the process.
type PolicyConfig struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

// NewPolicyConfig validates and freezes the access policy.
// A lifetime of zero selects DefaultTokenLifetime.
func NewPolicyConfig(secret, issuer string, lifetime time.Duration) (PolicyConfig, error) {
	if secret == "" {
		return PolicyConfig{}, fmt.Errorf("%w: signing secret is required", ErrInvalidPolicy)
	}
	if insecureSecrets[strings.ToLower(secret)] {
		return PolicyConfig{}, fmt.Errorf("%w: signing secret is a known development default", ErrInvalidPolicy)
	}
	if len(secret) < MinSecretLength {
		return PolicyConfig{}, fmt.Errorf("%w: signing secret must be at least %d bytes", ErrInvalidPolicy, MinSecretLength)
	}

	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return PolicyConfig{}, fmt.Errorf("%w: issuer is required", ErrInvalidPolicy)
	}
	if insecureIssuers[strings.ToLower(issuer)] {
		return PolicyConfig{}, fmt.Errorf("%w: issuer %q is a known development default", ErrInvalidPolicy, issuer)
	}

	if lifetime < 0 {
		return PolicyConfig{}, fmt.Errorf("%w: token lifetime must be positive", ErrInvalidPolicy)
	}
	if lifetime == 0 {
		lifetime = DefaultTokenLifetime
	}

	return PolicyConfig{
		secret:   []byte(secret),
		issuer:   issuer,
		lifetime: lifetime,
	}, nil
}

// Issuer returns the configured issuer.
func (c PolicyConfig) Issuer() string {
	return c.issuer
}

// TokenLifetime returns the configured token lifetime.
func (c PolicyConfig) TokenLifetime() time.Duration {
	return c.lifetime
}

// Validate rejects the zero value and anything not built by NewPolicyConfig.
func (c PolicyConfig) Validate() error {
	if len(c.secret) < MinSecretLength || c.issuer == "" || c.lifetime <= 0 {
		return fmt.Errorf("%w: policy not initialized", ErrInvalidPolicy)
	}
	return nil
}

// String never includes the secret.
func (c PolicyConfig) String() string {
	return fmt.Sprintf("PolicyConfig{issuer=%q lifetime=%s secret=[REDACTED]}", c.issuer, c.lifetime)
}

func (c PolicyConfig) signingKey() []byte {
	key := make([]byte, len(c.secret))
	copy(key, c.secret)
	return key
}
