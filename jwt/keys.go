package jwtkit

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaulFidika/supaguard/core"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultAlgorithm is assumed when neither the key entry nor the token header names one.
const DefaultAlgorithm = "ES256"

// Family is the closed set of key families a verification key can belong to.
type Family int

const (
	FamilyUnsupported Family = iota
	FamilyRSA
	FamilyEC
	FamilyEd25519
)

func (f Family) String() string {
	switch f {
	case FamilyRSA:
		return "RSA"
	case FamilyEC:
		return "EC"
	case FamilyEd25519:
		return "Ed25519"
	default:
		return "unsupported"
	}
}

// FamilyForAlgorithm maps a JWS alg to its key family. Key-encryption and symmetric
// algorithms (RSA1_5, HS256, none, ...) map to FamilyUnsupported.
func FamilyForAlgorithm(alg string) Family {
	switch alg {
	case "RS256", "RS384", "RS512":
		return FamilyRSA
	case "ES256", "ES384", "ES512":
		return FamilyEC
	case "EdDSA":
		return FamilyEd25519
	default:
		return FamilyUnsupported
	}
}

// PublicKey is a resolved verification key. Key holds *rsa.PublicKey,
// *ecdsa.PublicKey or ed25519.PublicKey according to Family.
type PublicKey struct {
	KID       string
	Algorithm string
	Family    Family
	Key       crypto.PublicKey
}

// KeyEntry is one entry of a published key-set, decoded once when the set is built.
type KeyEntry struct {
	KID string
	Alg string // as declared by the entry; may be empty
	Kty string
	Use string

	family Family // from Alg; FamilyUnsupported when Alg is empty or not accepted
	key    crypto.PublicKey
	keyErr error
}

// ParseKeyEntry decodes a single JWK. Material that cannot be decoded does not fail the
// entry; it is reported when the entry is resolved.
func ParseKeyEntry(raw json.RawMessage) (KeyEntry, error) {
	var hdr JWK
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return KeyEntry{}, fmt.Errorf("%w: undecodable key entry", core.ErrKeySetFetch)
	}
	e := KeyEntry{
		KID: hdr.Kid,
		Alg: hdr.Alg,
		Kty: hdr.Kty,
		Use: hdr.Use,
	}
	if e.Alg != "" {
		e.family = FamilyForAlgorithm(e.Alg)
	}
	e.key, e.keyErr = decodePublicKey(raw)
	return e, nil
}

// Family reports the entry's declared family, or FamilyUnsupported if it declares none.
func (e KeyEntry) Family() Family { return e.family }

// PublicKey builds the verification key. The entry's own alg wins over hint; hint is only
// consulted when the entry omits alg, and DefaultAlgorithm when both are empty.
func (e KeyEntry) PublicKey(hint string) (PublicKey, error) {
	alg, family := e.Alg, e.family
	if alg == "" {
		alg = strings.TrimSpace(hint)
		if alg == "" {
			alg = DefaultAlgorithm
		}
		family = FamilyForAlgorithm(alg)
	}
	if family == FamilyUnsupported {
		return PublicKey{}, fmt.Errorf("%w: %q for kid %q", core.ErrUnsupportedAlgorithm, alg, e.KID)
	}
	if e.keyErr != nil {
		return PublicKey{}, fmt.Errorf("%w: undecodable key material for kid %q", core.ErrKeySetFetch, e.KID)
	}
	if !familyMatches(family, e.key) {
		return PublicKey{}, fmt.Errorf("%w: %q does not match %s key for kid %q", core.ErrUnsupportedAlgorithm, alg, e.Kty, e.KID)
	}
	return PublicKey{KID: e.KID, Algorithm: alg, Family: family, Key: e.key}, nil
}

func familyMatches(f Family, key crypto.PublicKey) bool {
	switch f {
	case FamilyRSA:
		_, ok := key.(*rsa.PublicKey)
		return ok
	case FamilyEC:
		_, ok := key.(*ecdsa.PublicKey)
		return ok
	case FamilyEd25519:
		_, ok := key.(ed25519.PublicKey)
		return ok
	}
	return false
}

// decodePublicKey turns JWK material into a crypto public key. Private members, if an
// authority ever leaks them into the published set, are dropped.
func decodePublicKey(raw []byte) (crypto.PublicKey, error) {
	key, err := jwk.ParseKey(raw)
	if err != nil {
		return nil, err
	}
	pub, err := jwk.PublicRawKeyOf(key)
	if err != nil {
		return nil, err
	}
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k, nil
	case *ecdsa.PublicKey:
		return k, nil
	case ed25519.PublicKey:
		return k, nil
	default:
		return nil, fmt.Errorf("jwtkit: %T is not a signature verification key", pub)
	}
}

// JWK re-encodes the entry's public material. Private members and unknown fields of the
// published entry are not carried over. ok is false when the material did not decode.
func (e KeyEntry) JWK() (JWK, bool) {
	var k JWK
	switch pub := e.key.(type) {
	case *rsa.PublicKey:
		k = RSAPublicToJWK(pub, e.KID, e.Alg)
	case *ecdsa.PublicKey:
		k = ECPublicToJWK(pub, e.KID, e.Alg)
	case ed25519.PublicKey:
		k = Ed25519PublicToJWK(pub, e.KID)
		k.Alg = e.Alg
	default:
		return JWK{}, false
	}
	if k.Kty == "" {
		return JWK{}, false
	}
	k.Use = e.Use
	return k, true
}
