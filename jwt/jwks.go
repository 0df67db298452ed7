package jwtkit

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWK carries the fields of a published key entry that the resolver inspects before
// handing the raw entry to the key decoder.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	// RSA
	N string `json:"n,omitempty"` // base64url
	E string `json:"e,omitempty"` // base64url
	// EC / OKP
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

type JWKS struct {
	Keys []JWK `json:"keys"`
}

// RSAPublicToJWK converts an RSA public key to a JWK.
func RSAPublicToJWK(pub *rsa.PublicKey, kid, alg string) JWK {
	n := base64URLEncode(pub.N)
	e := base64URLEncode(big.NewInt(int64(pub.E)))
	return JWK{Kty: "RSA", Use: "sig", Kid: kid, Alg: alg, N: n, E: e}
}

// ECPublicToJWK converts a P-256/P-384/P-521 public key to a JWK. Coordinates are
// left-padded to the curve size as RFC 7518 requires.
func ECPublicToJWK(pub *ecdsa.PublicKey, kid, alg string) JWK {
	return fromRaw(pub, kid, alg)
}

// Ed25519PublicToJWK converts an Ed25519 public key to an OKP JWK.
func Ed25519PublicToJWK(pub ed25519.PublicKey, kid string) JWK {
	return fromRaw(pub, kid, "EdDSA")
}

// fromRaw lets jwx encode the key material. The zero JWK is returned for key types jwx
// does not know, which typed callers never pass.
func fromRaw(raw any, kid, alg string) JWK {
	k, err := jwk.FromRaw(raw)
	if err != nil {
		return JWK{}
	}
	_ = k.Set(jwk.KeyUsageKey, jwk.ForSignature)
	if kid != "" {
		_ = k.Set(jwk.KeyIDKey, kid)
	}
	if alg != "" {
		_ = k.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(alg))
	}
	b, err := json.Marshal(k)
	if err != nil {
		return JWK{}
	}
	var out JWK
	if err := json.Unmarshal(b, &out); err != nil {
		return JWK{}
	}
	return out
}

// ServeJWKS writes JWKS JSON to the ResponseWriter.
func ServeJWKS(w http.ResponseWriter, r *http.Request, ks JWKS) {
	// Marshal first to compute a stable ETag and set cache headers
	b, _ := json.Marshal(ks)
	sum := sha256.Sum256(b)
	etag := "\"" + hex.EncodeToString(sum[:]) + "\""

	w.Header().Set("Cache-Control", "public, max-age=600, must-revalidate")
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func base64URLEncode(i *big.Int) string {
	b := i.Bytes()
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
