// Package authtest runs a stand-in identity authority for tests. It publishes a key-set
// at /auth/v1/.well-known/jwks.json and signs session tokens that verify against it, so
// verifier and middleware tests need no real project.
//
// Example usage:
//
//	auth := authtest.NewAuthority(t)
//	v, _, err := supabasekit.New(auth.Accept(), nil)
//	token := auth.CreateToken("4b0c...", "test@example.com")
package authtest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PaulFidika/supaguard/core"
	jwtkit "github.com/PaulFidika/supaguard/jwt"
	jwt "github.com/golang-jwt/jwt/v5"
)

// JWKSPath is where the authority publishes its key-set.
const JWKSPath = "/auth/v1/.well-known/jwks.json"

// TB is the subset of testing.TB the authority needs.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	Cleanup(func())
}

// Authority is a test identity authority with rotating signing keys.
type Authority struct {
	t      TB
	server *httptest.Server

	mu        sync.Mutex
	published []jwtkit.Signer
	extra     []jwtkit.JWK
	current   jwtkit.Signer
	status    int
	body      []byte
	delay     time.Duration
	seq       int

	fetches atomic.Int64
}

// NewAuthority starts an authority publishing one signer per algorithm (ES256 when none
// are given). The first signer signs new tokens. The server shuts down at test cleanup.
func NewAuthority(t TB, algs ...string) *Authority {
	t.Helper()
	if len(algs) == 0 {
		algs = []string{core.AlgES256}
	}
	a := &Authority{t: t}
	for _, alg := range algs {
		s := a.newSigner(alg)
		a.published = append(a.published, s)
	}
	a.current = a.published[0]

	mux := http.NewServeMux()
	mux.HandleFunc(JWKSPath, a.handleJWKS)
	a.server = httptest.NewServer(mux)
	t.Cleanup(a.server.Close)
	return a
}

func (a *Authority) newSigner(alg string) jwtkit.Signer {
	a.t.Helper()
	a.seq++
	s, err := jwtkit.NewSigner(alg, fmt.Sprintf("test-key-%d", a.seq))
	if err != nil {
		a.t.Fatalf("authtest: create %s signer: %v", alg, err)
	}
	return s
}

// URL is the authority base URL (what SUPABASE_URL would hold).
func (a *Authority) URL() string { return a.server.URL }

// Issuer is the iss value the authority stamps into tokens.
func (a *Authority) Issuer() string { return a.server.URL + "/auth/v1" }

func (a *Authority) JWKSURL() string { return a.server.URL + JWKSPath }

// Accept returns the acceptance policy a verifier for this authority should use.
func (a *Authority) Accept() core.AcceptConfig { return core.SupabaseAccept(a.server.URL) }

// Fetches reports how many times the key-set has been requested.
func (a *Authority) Fetches() int { return int(a.fetches.Load()) }

// Current returns the signer used for new tokens.
func (a *Authority) Current() jwtkit.Signer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Rotate publishes a fresh key for alg and makes it the signing key. The previous keys
// stay published until Retire.
func (a *Authority) Rotate(alg string) jwtkit.Signer {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.newSigner(alg)
	a.published = append(a.published, s)
	a.current = s
	return s
}

// Unpublished creates a signer whose key never appears in the key-set.
func (a *Authority) Unpublished(alg string) jwtkit.Signer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.newSigner(alg)
}

// Retire removes kid from the published key-set.
func (a *Authority) Retire(kid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.published[:0]
	for _, s := range a.published {
		if s.KID() != kid {
			kept = append(kept, s)
		}
	}
	a.published = kept
}

// PublishRaw adds entries verbatim to the key-set, e.g. one declaring alg "none".
func (a *Authority) PublishRaw(keys ...jwtkit.JWK) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.extra = append(a.extra, keys...)
}

// FailWith makes the key-set endpoint answer with status. Zero restores normal service.
func (a *Authority) FailWith(status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = status
}

// ServeBody replaces the key-set document with body. Nil restores normal service.
func (a *Authority) ServeBody(body []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.body = body
}

// SetDelay holds every key-set response for d.
func (a *Authority) SetDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.delay = d
}

func (a *Authority) handleJWKS(w http.ResponseWriter, r *http.Request) {
	a.fetches.Add(1)
	a.mu.Lock()
	status, body, delay := a.status, a.body, a.delay
	ks := jwtkit.JWKS{Keys: make([]jwtkit.JWK, 0, len(a.published)+len(a.extra))}
	for _, s := range a.published {
		ks.Keys = append(ks.Keys, s.Public())
	}
	ks.Keys = append(ks.Keys, a.extra...)
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if body != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}
	jwtkit.ServeJWKS(w, r, ks)
}

// Claims returns the session claim layout for userID, valid for an hour.
func (a *Authority) Claims(userID, email string) jwt.MapClaims {
	c := jwtkit.SessionClaims(a.Issuer(), userID, time.Hour)
	if email != "" {
		c["email"] = email
	}
	c["session_id"] = "sess-" + userID
	c["aal"] = "aal1"
	c["is_anonymous"] = false
	c["app_metadata"] = map[string]any{"provider": "email", "providers": []any{"email"}}
	c["user_metadata"] = map[string]any{}
	return c
}

// CreateToken signs a session token for userID with the current key.
func (a *Authority) CreateToken(userID, email string) string {
	return a.CreateTokenWithClaims(userID, email, nil)
}

// CreateTokenWithClaims merges extra into the session claims. A nil value deletes the
// claim, which lets tests drop exp, iss or sub.
func (a *Authority) CreateTokenWithClaims(userID, email string, extra map[string]any) string {
	c := a.Claims(userID, email)
	for k, v := range extra {
		if v == nil {
			delete(c, k)
			continue
		}
		c[k] = v
	}
	return a.Sign(a.Current(), c)
}

// CreateExpiredToken signs a token that expired an hour ago.
func (a *Authority) CreateExpiredToken(userID, email string) string {
	now := time.Now()
	return a.CreateTokenWithClaims(userID, email, map[string]any{
		"iat": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Hour).Unix(),
	})
}

// Sign signs claims with s, failing the test on error.
func (a *Authority) Sign(s jwtkit.Signer, claims jwt.MapClaims) string {
	a.t.Helper()
	token, err := s.Sign(context.Background(), claims)
	if err != nil {
		a.t.Fatalf("authtest: sign: %v", err)
	}
	return token
}
