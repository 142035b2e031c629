package token

import (
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/wildrydes/dispatch/internal/domain"
)

func newTestVerifier(t *testing.T, iss, aud string, refresh time.Duration) (*Issuer, *Verifier, *KeyCache) {
	t.Helper()
	ks, err := NewKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	issuer := NewIssuer(iss, ks)
	kc := NewKeyCache(ks, refresh)
	return issuer, NewVerifier(iss, aud, kc), kc
}

func TestIssueAndVerify(t *testing.T) {
	issuer, verifier, _ := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)

	signed, exp, err := issuer.IssueAccess("user-123", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", exp)
	}

	claims, err := verifier.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("subject = %q, want user-123", claims.Subject)
	}
}

func TestVerify_Expired(t *testing.T) {
	issuer, verifier, _ := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)
	issuer.AccessTTL = -2 * time.Minute // beyond leeway

	signed, _, err := issuer.IssueAccess("user-123", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestVerify_WrongAudience(t *testing.T) {
	issuer, verifier, _ := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)

	signed, _, err := issuer.IssueAccess("user-123", "some-other-app")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong audience, got %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	issuer, _, _ := newTestVerifier(t, "http://evil.example", "wildrydes-web", time.Minute)
	_, verifier, _ := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)

	// note: different keystore too, so this fails on the unknown kid first;
	// either way it must collapse to ErrUnauthorized
	signed, _, err := issuer.IssueAccess("user-123", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_AlgConfusion(t *testing.T) {
	_, verifier, _ := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)

	// HS256 token signed with an arbitrary secret must be rejected by the
	// EdDSA-only method allowlist.
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"iss": "http://iss.example",
		"sub": "user-123",
		"aud": "wildrydes-web",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tk.Header["kid"] = "whatever"
	signed, err := tk.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for HS256 token, got %v", err)
	}
}

func TestRotation_GraceWindow(t *testing.T) {
	issuer, verifier, kc := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)

	signed, _, err := issuer.IssueAccess("user-123", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := issuer.Keys.Rotate(time.Hour); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	kc.Invalidate()

	// Old token still verifies inside the grace window.
	if _, err := verifier.Verify(signed); err != nil {
		t.Fatalf("verify after rotation: %v", err)
	}

	// New tokens sign with the new key and verify too.
	signed2, _, err := issuer.IssueAccess("user-456", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue2: %v", err)
	}
	if _, err := verifier.Verify(signed2); err != nil {
		t.Fatalf("verify new key: %v", err)
	}
}

func TestRotation_RevokedAfterGrace(t *testing.T) {
	issuer, verifier, kc := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Minute)

	signed, _, err := issuer.IssueAccess("user-123", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Zero grace: the old key is revoked immediately. Once the cache
	// refreshes, the old token must be rejected.
	if err := issuer.Keys.Rotate(0); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	kc.Invalidate()

	if _, err := verifier.Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after revocation, got %v", err)
	}
}

func TestKeyCache_StalenessBound(t *testing.T) {
	issuer, verifier, _ := newTestVerifier(t, "http://iss.example", "wildrydes-web", time.Hour)

	signed, _, err := issuer.IssueAccess("user-123", "wildrydes-web")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// Warm the cache, then revoke. Within the refresh interval the stale
	// cache may still accept the token; that is the documented bound.
	if _, err := verifier.Verify(signed); err != nil {
		t.Fatalf("warm verify: %v", err)
	}
	if err := issuer.Keys.Rotate(0); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := verifier.Verify(signed); err != nil {
		t.Fatalf("within refresh interval the cached key should still verify: %v", err)
	}
}

func TestJWKSRoundTrip(t *testing.T) {
	ks, err := NewKeystore()
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	if err := ks.Rotate(time.Hour); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	doc, err := ks.JWKSJSON()
	if err != nil {
		t.Fatalf("jwks: %v", err)
	}
	keys, err := ParseJWKS(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected active + retired key, got %d", len(keys))
	}

	want, err := ks.PublicKeys()
	if err != nil {
		t.Fatalf("public keys: %v", err)
	}
	if keys[0].KID != want[0].KID {
		t.Fatalf("kid mismatch: %q vs %q", keys[0].KID, want[0].KID)
	}
}
