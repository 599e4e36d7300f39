package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signingMethod is the only accepted algorithm. Tokens with any other alg
// header, including "none", fail signature verification.
var signingMethod = jwt.SigningMethodHS256

// Claims is the token claim layout written by Issue: sub, role, email,
// name, iss, iat, exp.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer mints identity tokens.
type TokenIssuer interface {
	Issue(subjectID string, role Role, email, displayName string) (string, error)
}

// TokenVerifier turns a token string into an Identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: failures are *AuthnError reasons (possibly wrapped).
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the codec's time source.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// TokenCodec issues and verifies HS256 identity tokens. It holds only the
// immutable key, issuer and lifetime and is safe for concurrent use.
type TokenCodec struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewTokenCodec creates a codec bound to cfg.
func NewTokenCodec(cfg PolicyConfig, opts ...CodecOption) (*TokenCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &TokenCodec{
		key:      cfg.signingKey(),
		issuer:   cfg.issuer,
		lifetime: cfg.lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// Issuer returns the issuer stamped into and required of every token.
func (c *TokenCodec) Issuer() string {
	return c.issuer
}

// Issue signs a token for the given subject. The expiry is always
// now + the configured lifetime.
func (c *TokenCodec) Issue(subjectID string, role Role, email, displayName string) (string, error) {
	if len(c.key) == 0 {
		return "", fmt.Errorf("%w: signing key is empty", ErrSigning)
	}
	if strings.TrimSpace(subjectID) == "" {
		return "", fmt.Errorf("%w: subject is required", ErrSigning)
	}
	r, err := ParseRole(string(role))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}

	now := c.now()
	claims := Claims{
		Role:  string(r),
		Email: email,
		Name:  displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiration, in that order, and maps
// the claims onto an Identity. Claims are decoded into a map so that a
// wrong-typed claim never masks the signature check.
func (c *TokenCodec) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Identity{}, ErrInvalidSignature
	}

	claims := jwt.MapClaims{}
	_, err := c.parser.ParseWithClaims(tokenString, claims, c.keyFunc)
	if err != nil {
		return Identity{}, c.classify(err, claims)
	}

	return identityFromClaims(claims)
}

func (c *TokenCodec) keyFunc(_ *jwt.Token) (any, error) {
	return c.key, nil
}

// classify maps a parser error onto a failure reason. Claim errors are only
// reported after the signature has been verified, so everything that is not
// a claim error is a structure or signature failure.
func (c *TokenCodec) classify(err error, claims jwt.MapClaims) error {
	if !errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return authnFailure(ErrInvalidSignature, err)
	}
	iss, _ := claims["iss"].(string)
	switch {
	case iss != c.issuer:
		return authnFailure(ErrIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return authnFailure(ErrTokenExpired, err)
	default:
		return authnFailure(ErrMalformedToken, err)
	}
}

func identityFromClaims(m jwt.MapClaims) (Identity, error) {
	sub, err := m.GetSubject()
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	if strings.TrimSpace(sub) == "" {
		return Identity{}, authnFailure(ErrMalformedToken, errors.New("sub claim is required"))
	}
	rawRole, err := stringClaim(m, "role")
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	email, err := stringClaim(m, "email")
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	name, err := stringClaim(m, "name")
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	iat, err := m.GetIssuedAt()
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	exp, err := m.GetExpirationTime()
	if err != nil {
		return Identity{}, authnFailure(ErrMalformedToken, err)
	}
	iss, _ := m.GetIssuer()

	id := Identity{
		SubjectID:   sub,
		Role:        role,
		Email:       email,
		DisplayName: name,
		Issuer:      iss,
	}
	if iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// stringClaim returns the named claim. Absent and null claims are empty;
// any other non-string value is an error.
func stringClaim(m jwt.MapClaims, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s claim must be a string, got %T", key, v)
	}
	return s, nil
}

// Ensure TokenCodec implements TokenIssuer and TokenVerifier
var (
	_ TokenIssuer   = (*TokenCodec)(nil)
	_ TokenVerifier = (*TokenCodec)(nil)
)
