// Package token issues and verifies the bearer tokens that gate the dispatch
// path. Signing is Ed25519 (EdDSA); verification material travels as a JWKS
// so the gateway can verify offline against cached public keys.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// VerificationKey is one public key as the gateway consumes it.
type VerificationKey struct {
	KID string
	Key ed25519.PublicKey
}

// KeyProvider exposes current verification material. The in-process keystore
// implements it; a remote JWKS fetcher can replace it without touching the
// gateway.
type KeyProvider interface {
	PublicKeys() ([]VerificationKey, error)
}

// Keystore holds the active signing key plus previously rotated public keys
// still inside their grace window.
type Keystore struct {
	mu      sync.RWMutex
	kid     string
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	retired []retiredKey
}

type retiredKey struct {
	kid   string
	pub   ed25519.PublicKey
	until time.Time
}

// NewKeystore generates a fresh Ed25519 keypair.
func NewKeystore() (*Keystore, error) {
	ks := &Keystore{}
	if err := ks.generate(); err != nil {
		return nil, err
	}
	return ks, nil
}

func (ks *Keystore) generate() error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return err
	}
	ks.kid = "ed25519-" + hex.EncodeToString(b[:])
	ks.priv, ks.pub = priv, pub
	return nil
}

// Active returns the current signing key.
func (ks *Keystore) Active() (kid string, priv ed25519.PrivateKey) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.kid, ks.priv
}

// Rotate generates a new active key. The old public key keeps verifying
// tokens for grace, so in-flight tokens survive a rotation.
func (ks *Keystore) Rotate(grace time.Duration) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	old := retiredKey{kid: ks.kid, pub: ks.pub, until: time.Now().Add(grace)}
	if err := ks.generate(); err != nil {
		return err
	}
	ks.retired = append(ks.retired, old)
	return nil
}

// PublicKeys implements KeyProvider. Retired keys past their grace window are
// dropped.
func (ks *Keystore) PublicKeys() ([]VerificationKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	now := time.Now()
	kept := ks.retired[:0]
	for _, r := range ks.retired {
		if now.Before(r.until) {
			kept = append(kept, r)
		}
	}
	ks.retired = kept

	out := make([]VerificationKey, 0, len(ks.retired)+1)
	out = append(out, VerificationKey{KID: ks.kid, Key: ks.pub})
	for _, r := range ks.retired {
		out = append(out, VerificationKey{KID: r.kid, Key: r.pub})
	}
	return out, nil
}

// ----- JWKS serialization -----

type jwk struct {
	Kty string `json:"kty"` // "OKP"
	Crv string `json:"crv"` // "Ed25519"
	Kid string `json:"kid"`
	Alg string `json:"alg"` // "EdDSA"
	Use string `json:"use"` // "sig"
	X   string `json:"x"`   // base64url(pub)
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// JWKSJSON returns the public keys (active plus in-grace retired) as a JWKS
// document.
func (ks *Keystore) JWKSJSON() ([]byte, error) {
	keys, err := ks.PublicKeys()
	if err != nil {
		return nil, err
	}
	doc := jwks{Keys: make([]jwk, 0, len(keys))}
	for _, k := range keys {
		doc.Keys = append(doc.Keys, jwk{
			Kty: "OKP",
			Crv: "Ed25519",
			Kid: k.KID,
			Alg: "EdDSA",
			Use: "sig",
			X:   base64.RawURLEncoding.EncodeToString(k.Key),
		})
	}
	return json.Marshal(doc)
}

// ParseJWKS decodes a JWKS document into verification keys, skipping entries
// that are not Ed25519 signing keys.
func ParseJWKS(data []byte) ([]VerificationKey, error) {
	var doc jwks
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("token: parse jwks: %w", err)
	}
	out := make([]VerificationKey, 0, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "OKP" || k.Crv != "Ed25519" {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil || len(raw) != ed25519.PublicKeySize {
			continue
		}
		out = append(out, VerificationKey{KID: k.Kid, Key: ed25519.PublicKey(raw)})
	}
	return out, nil
}
