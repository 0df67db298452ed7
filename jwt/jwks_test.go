package jwtkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServeJWKSETag(t *testing.T) {
	s, _ := NewEd25519Signer("ed")
	ks := JWKS{Keys: []JWK{s.Public()}}

	rec := httptest.NewRecorder()
	ServeJWKS(rec, httptest.NewRequest(http.MethodGet, "/jwks.json", nil), ks)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" || rec.Header().Get("Cache-Control") == "" {
		t.Fatalf("missing cache headers: %v", rec.Header())
	}
	var got JWKS
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || len(got.Keys) != 1 || got.Keys[0].Kty != "OKP" {
		t.Fatalf("body: %s (%v)", rec.Body.String(), err)
	}

	req := httptest.NewRequest(http.MethodGet, "/jwks.json", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	ServeJWKS(rec, req, ks)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
	if rec.Header().Get("ETag") != etag || rec.Header().Get("Cache-Control") == "" {
		t.Fatalf("304 without validators: %v", rec.Header())
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("304 with body")
	}
}

func TestPublicToJWKEncodings(t *testing.T) {
	ec, _ := NewECSigner("ec-1")
	k := ec.Public()
	if k.Kty != "EC" || k.Crv != "P-256" || k.Kid != "ec-1" || k.Alg != "ES256" || k.Use != "sig" {
		t.Fatalf("ec jwk: %+v", k)
	}
	if len(k.X) != 43 || len(k.Y) != 43 {
		t.Fatalf("ec coordinates not padded: %q %q", k.X, k.Y)
	}

	ed, _ := NewEd25519Signer("ed-1")
	k = ed.Public()
	if k.Kty != "OKP" || k.Crv != "Ed25519" || k.Alg != "EdDSA" || k.Kid != "ed-1" || k.Y != "" || len(k.X) != 43 {
		t.Fatalf("ed25519 jwk: %+v", k)
	}
}
