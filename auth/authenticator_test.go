package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer token", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"lowercase scheme", "bearer abc", "abc", false},
		{"extra whitespace", "  Bearer \t abc  ", "abc", false},
		{"tab separator", "Bearer\tabc", "abc", false},
		{"double space separator", "Bearer  abc", "abc", false},
		{"trailing fields ignored", "Bearer abc extra", "abc", false},
		{"empty", "", "", true},
		{"scheme only", "Bearer", "", true},
		{"scheme and spaces", "Bearer   ", "", true},
		{"token only", "abc.def.ghi", "", true},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractBearerToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMissingToken) {
				t.Errorf("error = %v, want ErrMissingToken", err)
			}
			if got != tt.want {
				t.Errorf("ExtractBearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

type verifierFunc func(token string) (Identity, error)

func (f verifierFunc) Verify(token string) (Identity, error) { return f(token) }

func TestGate_Authenticate(t *testing.T) {
	codec := newTestCodec(t)
	gate := NewGate(codec)
	ctx := context.Background()

	valid, err := codec.Issue("u1", RoleUser, "u1@example.com", "User One")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	expired, err := newTestCodec(t, WithClock(fixedClock(time.Now().Add(-2*time.Hour)))).Issue("u1", RoleUser, "", "")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantAuth   bool
		wantReason error
	}{
		{"valid", "Bearer " + valid, true, nil},
		{"missing header", "", false, ErrMissingToken},
		{"missing token", "Bearer", false, ErrMissingToken},
		{"expired", "Bearer " + expired, false, ErrTokenExpired},
		{"forged", "Bearer " + valid + "x", false, ErrInvalidSignature},
		{"garbage", "Bearer garbage", false, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gate.Authenticate(ctx, tt.header)
			if result.Authenticated != tt.wantAuth {
				t.Fatalf("Authenticated = %v, want %v (err=%v)", result.Authenticated, tt.wantAuth, result.Error)
			}
			if tt.wantAuth {
				if result.Identity.SubjectID != "u1" {
					t.Errorf("SubjectID = %q, want u1", result.Identity.SubjectID)
				}
				if result.Error != nil {
					t.Errorf("Error = %v, want nil", result.Error)
				}
				return
			}
			if !errors.Is(result.Error, ErrUnauthenticated) {
				t.Errorf("Error = %v, want ErrUnauthenticated", result.Error)
			}
			if !errors.Is(result.Error, tt.wantReason) {
				t.Errorf("Error = %v, want reason %v", result.Error, tt.wantReason)
			}
			if !result.Identity.IsZero() {
				t.Errorf("failed result carries identity %+v", result.Identity)
			}
		})
	}
}

func TestGate_Authenticate_MissingHeaderSkipsVerifier(t *testing.T) {
	var calls int
	gate := NewGate(verifierFunc(func(string) (Identity, error) {
		calls++
		return Identity{SubjectID: "u1", Role: RoleUser}, nil
	}))

	result := gate.Authenticate(context.Background(), "")
	if result.Authenticated {
		t.Fatal("Authenticated = true, want false")
	}
	if calls != 0 {
		t.Errorf("verifier called %d times, want 0", calls)
	}
}

func TestGate_Authenticate_ForeignVerifierErrors(t *testing.T) {
	gate := NewGate(verifierFunc(func(string) (Identity, error) {
		return Identity{}, errors.New("boom")
	}))

	result := gate.Authenticate(context.Background(), "Bearer abc")
	if !errors.Is(result.Error, ErrUnauthenticated) {
		t.Errorf("Error = %v, want ErrUnauthenticated", result.Error)
	}
}

func TestGate_Authenticate_ZeroIdentityRejected(t *testing.T) {
	gate := NewGate(verifierFunc(func(string) (Identity, error) {
		return Identity{}, nil
	}))

	result := gate.Authenticate(context.Background(), "Bearer abc")
	if result.Authenticated {
		t.Fatal("Authenticated = true for zero identity")
	}
	if !errors.Is(result.Error, ErrMalformedToken) {
		t.Errorf("Error = %v, want ErrMalformedToken", result.Error)
	}
}

func TestGate_Authenticate_NilVerifier(t *testing.T) {
	result := NewGate(nil).Authenticate(context.Background(), "Bearer abc")
	if result.Authenticated {
		t.Fatal("Authenticated = true with nil verifier")
	}
}

func TestGate_FailureHook(t *testing.T) {
	var seen []error
	gate := NewGate(newTestCodec(t), WithFailureHook(func(_ context.Context, err error) {
		seen = append(seen, err)
	}))

	gate.Authenticate(context.Background(), "")
	gate.Authenticate(context.Background(), "Bearer nope")

	if len(seen) != 2 {
		t.Fatalf("hook called %d times, want 2", len(seen))
	}
	if !errors.Is(seen[0], ErrMissingToken) {
		t.Errorf("first failure = %v, want ErrMissingToken", seen[0])
	}
	if !errors.Is(seen[1], ErrInvalidSignature) {
		t.Errorf("second failure = %v, want ErrInvalidSignature", seen[1])
	}
}

func TestAuthFailure_NilError(t *testing.T) {
	result := AuthFailure(nil)
	if !errors.Is(result.Error, ErrUnauthenticated) {
		t.Errorf("Error = %v, want ErrUnauthenticated", result.Error)
	}
}
