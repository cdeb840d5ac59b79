package config

import "time"

// CacheConfig controls the Redis response cache in front of the public
// train listing.  Listings carry seat availability, so TTL is short and the
// cache is invalidated after every booking, cancellation and train edit.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string // key namespace
	MaxBodyBytes int    // responses larger than this are not stored
}

func LoadCacheConfig() CacheConfig {
	c := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 5*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "rail:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if c.TTL <= 0 {
		c.TTL = 5 * time.Second
	}
	return c
}
