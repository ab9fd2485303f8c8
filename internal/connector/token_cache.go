package connector

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// tokenCache keeps exchanged short-lived tokens across sync runs so each
// scheduled sync does not hit the token endpoint again while the previous
// token is still valid. Entries expire on their own ttl via Put.
type tokenCache struct {
	cache *expirable.LRU[string, cachedToken]
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

var sharedTokenCache = newTokenCache(128)

func newTokenCache(size int) *tokenCache {
	return &tokenCache{
		cache: expirable.NewLRU[string, cachedToken](size, nil, time.Hour),
	}
}

func (c *tokenCache) Get(key string) (string, bool) {
	entry, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	// refuse tokens inside a safety margin of their expiry
	if time.Until(entry.expiresAt) < time.Minute {
		c.cache.Remove(key)
		return "", false
	}
	return entry.token, true
}

func (c *tokenCache) Put(key, token string, ttl time.Duration) {
	c.cache.Add(key, cachedToken{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	})
}
