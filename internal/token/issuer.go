package token

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Issuer signs access tokens with the keystore's active key.
type Issuer struct {
	Iss       string // "iss" claim
	Keys      *Keystore
	AccessTTL time.Duration
}

// NewIssuer builds an issuer with the default 15m access TTL.
func NewIssuer(iss string, ks *Keystore) *Issuer {
	return &Issuer{Iss: iss, Keys: ks, AccessTTL: 15 * time.Minute}
}

// IssueAccess signs an access token for subject sub and audience aud.
// Claims: iss, sub, aud, iat, nbf, exp; header carries the active kid.
func (i *Issuer) IssueAccess(sub, aud string) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	kid, priv := i.Keys.Active()
	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": sub,
		"aud": aud,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = kid
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
