package config

import "time"

// RateLimitConfig drives the per-user limiter on booking and cancellation.
// A caller may make Burst requests back to back and then one more every
// Every.
type RateLimitConfig struct {
	Enabled bool
	Burst   int
	Every   time.Duration
	Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Burst:   envInt("RATE_LIMIT_BURST", 10),
		Every:   envDur("RATE_LIMIT_EVERY", 2*time.Second),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rail:rl"),
	}
	if c.Burst < 1 {
		c.Burst = 1
	}
	if c.Every < time.Millisecond {
		c.Every = time.Millisecond
	}
	return c
}
