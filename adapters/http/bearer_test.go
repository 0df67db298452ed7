package authhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PaulFidika/supaguard/authctx"
	jwtkit "github.com/PaulFidika/supaguard/jwt"
	supabasekit "github.com/PaulFidika/supaguard/supabase"
	authtest "github.com/PaulFidika/supaguard/testing"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"Basic abc":        "",
		"Bearer":           "",
		"Bearer abc":       "abc",
		"bearer  abc.def ": "abc.def",
		"BEARER x":         "x",
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := BearerToken(r); got != want {
			t.Fatalf("%q: got %q want %q", header, got, want)
		}
	}
}

func newVerifier(t *testing.T, auth *authtest.Authority) *supabasekit.Verifier {
	t.Helper()
	l, _ := test.NewNullLogger()
	v, _, err := supabasekit.New(auth.Accept(), nil, supabasekit.WithLogger(l))
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	return v
}

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(authctx.UserID(r.Context())))
	})
}

func TestRequireBearer(t *testing.T) {
	auth := authtest.NewAuthority(t)
	h := RequireBearer(newVerifier(t, auth))(whoami())

	serve := func(header string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	w := serve("Bearer " + auth.CreateToken("u1", ""))
	if w.Code != http.StatusOK || w.Body.String() != "u1" {
		t.Fatalf("valid token: %d %q", w.Code, w.Body.String())
	}

	w = serve("")
	if w.Code != http.StatusUnauthorized || w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("missing token: %d", w.Code)
	}

	w = serve("Bearer " + auth.CreateExpiredToken("u1", ""))
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusUnauthorized || body["error"] != "invalid_token" {
		t.Fatalf("expired token: %d %v", w.Code, body)
	}

	auth.FailWith(http.StatusBadGateway)
	w = serve("Bearer " + auth.Sign(auth.Unpublished("ES256"), auth.Claims("u2", "")))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("outage should be 503, got %d", w.Code)
	}
}

func TestOptionalBearer(t *testing.T) {
	auth := authtest.NewAuthority(t)
	h := OptionalBearer(newVerifier(t, auth))(whoami())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("anonymous: %d %q", w.Code, w.Body.String())
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
}

func TestJWKSHandler(t *testing.T) {
	auth := authtest.NewAuthority(t, "ES256", "RS256", "EdDSA")
	l, _ := test.NewNullLogger()
	_, resolver, err := supabasekit.New(auth.Accept(), nil, supabasekit.WithLogger(l))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	h := JWKSHandler(resolver)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jwks.json", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first fetch, got %d", w.Code)
	}

	if _, err := resolver.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jwks.json", nil))
	var ks jwtkit.JWKS
	if err := json.Unmarshal(w.Body.Bytes(), &ks); err != nil || len(ks.Keys) != 3 {
		t.Fatalf("republished set: %s (%v)", w.Body.String(), err)
	}
	for _, k := range ks.Keys {
		if k.Alg == "" || k.Kid == "" || k.Use != "sig" {
			t.Fatalf("entry lost fields: %+v", k)
		}
	}
}
