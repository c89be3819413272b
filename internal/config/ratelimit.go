package config

import "time"

// RateLimitConfig tunes the token-bucket limiter applied to the API.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // how often tokens are added
	TTL            time.Duration // bucket key lifetime in Redis
	KeyStrategy    string        // ip, user, route or combinations
	Prefix         string        // Redis key prefix
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* environment variables and
// clamps nonsensical values instead of failing.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// The TTL must outlive a few refill cycles or buckets reset too eagerly.
	if min := 5 * c.RefillInterval; c.TTL < min {
		c.TTL = min
	}
	return c
}
