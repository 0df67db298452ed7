package jwtkit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/PaulFidika/supaguard/core"
	jwt "github.com/golang-jwt/jwt/v5"
)

func TestFamilyForAlgorithm(t *testing.T) {
	cases := map[string]Family{
		"RS256": FamilyRSA,
		"RS512": FamilyRSA,
		"ES256": FamilyEC,
		"ES384": FamilyEC,
		"EdDSA": FamilyEd25519,
		"none":  FamilyUnsupported,
		"HS256": FamilyUnsupported,
		"PS256": FamilyUnsupported,
		"":      FamilyUnsupported,
	}
	for alg, want := range cases {
		if got := FamilyForAlgorithm(alg); got != want {
			t.Fatalf("%q: got %s want %s", alg, got, want)
		}
	}
}

func entryFor(t *testing.T, k JWK) KeyEntry {
	t.Helper()
	raw, err := json.Marshal(k)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	e, err := ParseKeyEntry(raw)
	if err != nil {
		t.Fatalf("parse entry: %v", err)
	}
	return e
}

func TestSignerKeysRoundTrip(t *testing.T) {
	want := map[string]Family{"RS256": FamilyRSA, "ES256": FamilyEC, "EdDSA": FamilyEd25519}
	for alg, family := range want {
		s, err := NewSigner(alg, "kid-"+alg)
		if err != nil {
			t.Fatalf("%s signer: %v", alg, err)
		}
		e := entryFor(t, s.Public())
		if e.KID != "kid-"+alg || e.Family() != family {
			t.Fatalf("%s: entry %+v", alg, e)
		}
		pk, err := e.PublicKey("")
		if err != nil {
			t.Fatalf("%s: public key: %v", alg, err)
		}
		if pk.Algorithm != alg || pk.Family != family {
			t.Fatalf("%s: got %s/%s", alg, pk.Algorithm, pk.Family)
		}

		tok, err := s.Sign(context.Background(), jwt.MapClaims{"sub": "u1"})
		if err != nil {
			t.Fatalf("%s: sign: %v", alg, err)
		}
		parsed, err := jwt.Parse(tok, func(*jwt.Token) (any, error) { return pk.Key, nil },
			jwt.WithValidMethods([]string{alg}))
		if err != nil || !parsed.Valid {
			t.Fatalf("%s: decoded key does not verify: %v", alg, err)
		}
	}
}

func TestPublicKeyRejectsNone(t *testing.T) {
	s, _ := NewRSASigner(2048, "k1")
	k := s.Public()
	k.Alg = "none"
	_, err := entryFor(t, k).PublicKey("RS256")
	if !errors.Is(err, core.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected unsupported algorithm, got %v", err)
	}
}

func TestPublicKeyHintOnlyWhenEntryOmitsAlg(t *testing.T) {
	rs, _ := NewRSASigner(2048, "rsa")
	k := rs.Public()
	k.Alg = ""
	e := entryFor(t, k)
	if e.Family() != FamilyUnsupported {
		t.Fatalf("entry without alg should not declare a family")
	}
	pk, err := e.PublicKey("RS256")
	if err != nil || pk.Family != FamilyRSA {
		t.Fatalf("hint ignored: %+v %v", pk, err)
	}
	// No alg anywhere: the default ES256 cannot use an RSA key.
	if _, err := e.PublicKey(""); !errors.Is(err, core.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected mismatch, got %v", err)
	}

	ec, _ := NewECSigner("ec")
	k = ec.Public()
	k.Alg = ""
	pk, err = entryFor(t, k).PublicKey("")
	if err != nil || pk.Algorithm != DefaultAlgorithm {
		t.Fatalf("default algorithm not applied: %+v %v", pk, err)
	}

	// Declared alg beats the header hint.
	pk, err = entryFor(t, ec.Public()).PublicKey("EdDSA")
	if err != nil || pk.Algorithm != "ES256" {
		t.Fatalf("declared alg should win: %+v %v", pk, err)
	}
}

func TestPublicKeyFamilyMismatch(t *testing.T) {
	ec, _ := NewECSigner("ec")
	k := ec.Public()
	k.Alg = "RS256"
	if _, err := entryFor(t, k).PublicKey(""); !errors.Is(err, core.ErrUnsupportedAlgorithm) {
		t.Fatalf("expected unsupported algorithm, got %v", err)
	}
}

func TestUndecodableMaterial(t *testing.T) {
	e, err := ParseKeyEntry(json.RawMessage(`{"kty":"XYZ","kid":"k1","alg":"RS256"}`))
	if err != nil {
		t.Fatalf("entry should parse: %v", err)
	}
	if _, err := e.PublicKey(""); !errors.Is(err, core.ErrKeySetFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, err := ParseKeyEntry(json.RawMessage(`[`)); !errors.Is(err, core.ErrKeySetFetch) {
		t.Fatalf("expected fetch error for garbage, got %v", err)
	}
}

func TestECPublicToJWKPadsCoordinates(t *testing.T) {
	for i := 0; i < 8; i++ {
		s, _ := NewECSigner("ec")
		k := s.Public()
		if len(k.X) != 43 || len(k.Y) != 43 || k.Crv != "P-256" {
			t.Fatalf("unpadded coordinates: %+v", k)
		}
	}
}
