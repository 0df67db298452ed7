// Package authctx carries verified claims through a request context so that handlers
// behind any adapter read them the same way.
package authctx

import (
	"context"

	supabasekit "github.com/PaulFidika/supaguard/supabase"
)

type ctxKey struct{}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, claims supabasekit.ClaimSet) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext reads verified claims from ctx.
func ClaimsFromContext(ctx context.Context) (supabasekit.ClaimSet, bool) {
	c, ok := ctx.Value(ctxKey{}).(supabasekit.ClaimSet)
	return c, ok && c != nil
}

// UserID returns the verified subject, or "" when the request is anonymous.
func UserID(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Subject()
}
