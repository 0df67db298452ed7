package authhttp

import (
	"context"
	"net/http"
	"strings"

	"github.com/PaulFidika/supaguard/authctx"
	"github.com/PaulFidika/supaguard/core"
	supabasekit "github.com/PaulFidika/supaguard/supabase"
)

// Verifier is satisfied by *supabasekit.Verifier.
type Verifier interface {
	Verify(ctx context.Context, token string) (supabasekit.ClaimSet, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// StatusFor maps a verification error to a response status: 503 while the key-set is
// unreachable, 401 for everything else.
func StatusFor(err error) int {
	if core.IsUnavailable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}

// ErrorCode is the client-facing error label. It never reveals which check failed.
func ErrorCode(err error) string {
	if core.IsUnavailable(err) {
		return "auth_unavailable"
	}
	return "invalid_token"
}

// RequireBearer rejects requests without a valid bearer token and stores the verified
// claims in the request context for authctx.ClaimsFromContext.
func RequireBearer(v Verifier) func(http.Handler) http.Handler {
	return bearer(v, true)
}

// OptionalBearer lets anonymous requests through but still rejects a bad token.
func OptionalBearer(v Verifier) func(http.Handler) http.Handler {
	return bearer(v, false)
}

func bearer(v Verifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				unauthorized(w, http.StatusUnauthorized, "missing_token")
				return
			}
			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, StatusFor(err), ErrorCode(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(authctx.WithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, status int, code string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
}
