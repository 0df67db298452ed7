package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/supaguard/jwt"
	"github.com/PaulFidika/supaguard/jwks"
)

// KeySource exposes the cached key-set; *jwks.Resolver satisfies it.
type KeySource interface {
	Snapshot() *jwks.KeySet
}

// JWKSHandler republishes the cached key-set so sidecars can share one upstream fetch.
// It answers 503 until the first fetch has succeeded.
func JWKSHandler(src KeySource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set := src.Snapshot()
		if set == nil {
			http.Error(w, "key set not loaded", http.StatusServiceUnavailable)
			return
		}
		jwtkit.ServeJWKS(w, r, set.JWKS())
	})
}
