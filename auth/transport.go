package auth

import (
	"context"
	"net/http"
)

// Middleware authenticates every request. On failure it writes an empty
// 401 and the wrapped handler never runs; on success the Identity is
// attached to the request context.
//
// Usage:
//
//	r.Use(gate.Middleware)
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if !result.Authenticated {
			Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), result.Identity)))
	})
}

// DenialHook observes authorization denials, e.g. for logging.
type DenialHook func(ctx context.Context, err error)

// Require returns middleware that enforces the role layer for op. Requests
// without an identity get 401, requests whose role is not allowed get 403.
//
// Usage:
//
//	r.With(auth.Require(authz, opBlackouts, nil)).Get("/grid/blackouts", h)
func Require(authz RoleAuthorizer, op Operation, onDeny DenialHook) func(http.Handler) http.Handler {
	guard := RoleGuard{Authorizer: authz, Operation: op}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				Unauthorized(w)
				return
			}
			if err := guard.Check(r.Context(), id); err != nil {
				if onDeny != nil {
					onDeny(r.Context(), err)
				}
				Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Unauthorized writes the opaque authentication failure response.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", BearerScheme)
	w.WriteHeader(http.StatusUnauthorized)
}

// Forbidden writes the opaque authorization failure response. It is the
// same for the role and ownership layers.
func Forbidden(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}
