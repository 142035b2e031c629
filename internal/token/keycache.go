package token

import (
	"crypto/ed25519"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const keyCacheEntry = "verification-keys"

// KeyCache caches verification material from a KeyProvider for a bounded
// refresh interval. The staleness contract: a key revoked upstream keeps
// verifying for at most the refresh interval.
//
// Concurrent refreshes collapse into one provider call via singleflight.
type KeyCache struct {
	provider KeyProvider
	cache    *gocache.Cache
	group    singleflight.Group
}

// NewKeyCache wraps provider with a refresh-interval cache.
func NewKeyCache(provider KeyProvider, refresh time.Duration) *KeyCache {
	if refresh <= 0 {
		refresh = 5 * time.Minute
	}
	return &KeyCache{
		provider: provider,
		cache:    gocache.New(refresh, refresh),
	}
}

// PublicKeyByKID resolves one public key from the cached set, refreshing from
// the provider when the cache expired. Unknown kid after a fresh load is an
// error: tokens signed by revoked keys must not fall back to anything.
func (kc *KeyCache) PublicKeyByKID(kid string) (ed25519.PublicKey, error) {
	keys, err := kc.load()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if k.KID == kid {
			return k.Key, nil
		}
	}
	return nil, errors.New("token: unknown kid")
}

func (kc *KeyCache) load() ([]VerificationKey, error) {
	if v, ok := kc.cache.Get(keyCacheEntry); ok {
		if keys, ok := v.([]VerificationKey); ok {
			return keys, nil
		}
	}
	v, err, _ := kc.group.Do(keyCacheEntry, func() (any, error) {
		keys, err := kc.provider.PublicKeys()
		if err != nil {
			return nil, err
		}
		kc.cache.SetDefault(keyCacheEntry, keys)
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]VerificationKey), nil
}

// Invalidate drops the cached set so the next verification refreshes.
func (kc *KeyCache) Invalidate() {
	kc.cache.Delete(keyCacheEntry)
}
