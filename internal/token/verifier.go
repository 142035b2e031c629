package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/wildrydes/dispatch/internal/domain"
)

// Verifier validates bearer tokens offline against cached verification
// material. Stateless: validity is signature + time window + audience, never
// a lookup.
type Verifier struct {
	Iss      string
	Audience string
	Keys     *KeyCache
	// Leeway absorbs clock skew on exp/nbf. Default 30s.
	Leeway time.Duration
}

// NewVerifier builds a verifier for one issuer/audience pair.
func NewVerifier(iss, aud string, keys *KeyCache) *Verifier {
	return &Verifier{Iss: iss, Audience: aud, Keys: keys, Leeway: 30 * time.Second}
}

// Claims is the validated claim set the gateway forwards from.
type Claims struct {
	Subject  string
	Audience string
	Expiry   time.Time
}

// Verify parses and validates raw. Every failure collapses to
// domain.ErrUnauthorized with the cause wrapped for logging.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("kid missing")
		}
		return v.Keys.PublicKeyByKID(kid)
	}

	tok, err := jwtv5.Parse(raw, keyfunc,
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithIssuer(v.Iss),
		jwtv5.WithAudience(v.Audience),
		jwtv5.WithLeeway(v.Leeway),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !tok.Valid {
		return nil, domain.ErrUnauthorized
	}

	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: sub missing", domain.ErrUnauthorized)
	}
	claims := &Claims{Subject: sub, Audience: v.Audience}
	if expf, ok := mc["exp"].(float64); ok {
		claims.Expiry = time.Unix(int64(expf), 0)
	}
	return claims, nil
}
