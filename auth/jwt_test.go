package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret-key-at-least-32-bytes"
	testIssuer = "gridgate-test"
)

func newTestPolicy(t testing.TB, secret, issuer string) PolicyConfig {
	t.Helper()
	cfg, err := NewPolicyConfig(secret, issuer, 0)
	if err != nil {
		t.Fatalf("NewPolicyConfig() error = %v", err)
	}
	return cfg
}

func newTestCodec(t testing.TB, opts ...CodecOption) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(newTestPolicy(t, testSecret, testIssuer), opts...)
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return codec
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// signRaw signs arbitrary claims with HS256, bypassing Issue's checks.
func signRaw(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func validRawClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "u1",
		"role":  "user",
		"email": "u1@example.com",
		"name":  "User One",
		"iss":   testIssuer,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewTokenCodec_RejectsZeroPolicy(t *testing.T) {
	_, err := NewTokenCodec(PolicyConfig{})
	if !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("NewTokenCodec(zero) error = %v, want ErrInvalidPolicy", err)
	}
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		sub, email, name string
		role             Role
	}{
		{"u1", "u1@example.com", "User One", RoleUser},
		{"admin-7", "ops@example.com", "Grid Operator", RoleAdmin},
		{"64b7f0c2e4b0a1a2b3c4d5e6", "", "", RoleUser},
		{"ünïcode", "ü@example.com", "Ünï Cödé", RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.sub, func(t *testing.T) {
			token, err := codec.Issue(tt.sub, tt.role, tt.email, tt.name)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			id, err := codec.Verify(token)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if id.SubjectID != tt.sub {
				t.Errorf("SubjectID = %q, want %q", id.SubjectID, tt.sub)
			}
			if id.Role != tt.role {
				t.Errorf("Role = %q, want %q", id.Role, tt.role)
			}
			if id.Email != tt.email {
				t.Errorf("Email = %q, want %q", id.Email, tt.email)
			}
			if id.DisplayName != tt.name {
				t.Errorf("DisplayName = %q, want %q", id.DisplayName, tt.name)
			}
			if id.Issuer != testIssuer {
				t.Errorf("Issuer = %q, want %q", id.Issuer, testIssuer)
			}
		})
	}
}

func TestTokenCodec_Issue_Lifetime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec := newTestCodec(t, WithClock(fixedClock(now)))

	token, err := codec.Issue("u1", RoleUser, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	id, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !id.IssuedAt.Equal(now) {
		t.Errorf("IssuedAt = %v, want %v", id.IssuedAt, now)
	}
	if want := now.Add(time.Hour); !id.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, want)
	}
}

func TestTokenCodec_Issue_ClaimLayout(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Issue("u1", RoleAdmin, "a@example.com", "Alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}

	for _, key := range []string{"sub", "role", "email", "name", "iss", "iat", "exp"} {
		if _, ok := claims[key]; !ok {
			t.Errorf("claim %q missing from token", key)
		}
	}
	if claims["role"] != "admin" {
		t.Errorf("role claim = %v, want admin", claims["role"])
	}
	if claims["name"] != "Alice" {
		t.Errorf("name claim = %v, want Alice", claims["name"])
	}
}

func TestTokenCodec_Issue_Errors(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name string
		sub  string
		role Role
	}{
		{"unknown role", "u1", Role("superuser")},
		{"empty role", "u1", ""},
		{"empty subject", "", RoleUser},
		{"blank subject", "   ", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Issue(tt.sub, tt.role, "", "")
			if !errors.Is(err, ErrSigning) {
				t.Errorf("Issue() error = %v, want ErrSigning", err)
			}
		})
	}
}

func TestTokenCodec_Issue_NormalizesRole(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Issue("u1", Role("Admin"), "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	id, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if id.Role != RoleAdmin {
		t.Errorf("Role = %q, want admin", id.Role)
	}
}

func TestTokenCodec_Verify_WrongSecret(t *testing.T) {
	other, err := NewTokenCodec(newTestPolicy(t, "another-secret-key-also-32-bytes-long", testIssuer))
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	codec := newTestCodec(t)

	for _, role := range KnownRoles {
		token, err := other.Issue("u1", role, "u1@example.com", "User One")
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}

		_, err = codec.Verify(token)
		if !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("Verify(%s) error = %v, want ErrInvalidSignature", role, err)
		}
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Verify(%s) error = %v, want to match ErrUnauthenticated", role, err)
		}
	}
}

func TestTokenCodec_Verify_Expired(t *testing.T) {
	twoHoursAgo := time.Now().Add(-2 * time.Hour)
	issuer := newTestCodec(t, WithClock(fixedClock(twoHoursAgo)))
	codec := newTestCodec(t)

	token, err := issuer.Issue("u1", RoleUser, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = codec.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestTokenCodec_Verify_ExpiryBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestCodec(t, WithClock(fixedClock(issuedAt))).Issue("u1", RoleUser, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"one second before exp", issuedAt.Add(time.Hour - time.Second), nil},
		{"exactly exp", issuedAt.Add(time.Hour), ErrTokenExpired},
		{"after exp", issuedAt.Add(time.Hour + time.Minute), ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := newTestCodec(t, WithClock(fixedClock(tt.at)))
			_, err := codec.Verify(token)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Verify() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenCodec_Verify_IssuerMismatch(t *testing.T) {
	foreign, err := NewTokenCodec(newTestPolicy(t, testSecret, "some-other-system"))
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	token, err := foreign.Issue("u1", RoleAdmin, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = newTestCodec(t).Verify(token)
	if !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("Verify() error = %v, want ErrIssuerMismatch", err)
	}
}

func TestTokenCodec_Verify_IssuerCheckedBeforeExpiry(t *testing.T) {
	claims := validRawClaims()
	claims["iss"] = "some-other-system"
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	_, err := newTestCodec(t).Verify(signRaw(t, testSecret, claims))
	if !errors.Is(err, ErrIssuerMismatch) {
		t.Fatalf("Verify() error = %v, want ErrIssuerMismatch", err)
	}
}

func TestTokenCodec_Verify_RawClaims(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name    string
		mutate  func(jwt.MapClaims)
		wantErr error
	}{
		{"valid", func(jwt.MapClaims) {}, nil},
		{"mixed case role", func(c jwt.MapClaims) { c["role"] = "Admin" }, nil},
		{"missing iss", func(c jwt.MapClaims) { delete(c, "iss") }, ErrIssuerMismatch},
		{"issuer differs by case", func(c jwt.MapClaims) { c["iss"] = strings.ToUpper(testIssuer) }, ErrIssuerMismatch},
		{"missing exp", func(c jwt.MapClaims) { delete(c, "exp") }, ErrMalformedToken},
		{"missing sub", func(c jwt.MapClaims) { delete(c, "sub") }, ErrMalformedToken},
		{"empty sub", func(c jwt.MapClaims) { c["sub"] = "" }, ErrMalformedToken},
		{"missing role", func(c jwt.MapClaims) { delete(c, "role") }, ErrMalformedToken},
		{"unknown role", func(c jwt.MapClaims) { c["role"] = "superuser" }, ErrMalformedToken},
		{"expired", func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }, ErrTokenExpired},
		{"numeric role", func(c jwt.MapClaims) { c["role"] = 7 }, ErrMalformedToken},
		{"numeric sub", func(c jwt.MapClaims) { c["sub"] = 42 }, ErrMalformedToken},
		{"object email", func(c jwt.MapClaims) { c["email"] = map[string]any{"a": 1} }, ErrMalformedToken},
		{"string iat", func(c jwt.MapClaims) { c["iat"] = "yesterday" }, ErrMalformedToken},
		{"null name", func(c jwt.MapClaims) { c["name"] = nil }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := validRawClaims()
			tt.mutate(claims)

			_, err := codec.Verify(signRaw(t, testSecret, claims))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Verify() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenCodec_Verify_WrongTypedClaimBadSignature(t *testing.T) {
	claims := validRawClaims()
	claims["role"] = 7
	claims["sub"] = 42

	_, err := newTestCodec(t).Verify(signRaw(t, "a-different-secret-that-is-long-enough", claims))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Verify() error = %v, want ErrInvalidSignature", err)
	}
}

func TestTokenCodec_Verify_Structure(t *testing.T) {
	codec := newTestCodec(t)
	valid, err := codec.Issue("u1", RoleUser, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(valid, ".")

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, validRawClaims()).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(none) error = %v", err)
	}
	hs512Token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validRawClaims()).
		SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString(HS512) error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", parts[0] + "." + parts[1]},
		{"tampered payload", parts[0] + "." + parts[1] + "x." + parts[2]},
		{"stripped signature", parts[0] + "." + parts[1] + "."},
		{"alg none", noneToken},
		{"alg HS512", hs512Token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("Verify() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}
