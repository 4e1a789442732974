package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig controls the response cache wrapped around the public
// verification endpoints. A verification answer only changes when a
// certificate transfers or an operator overrides its status, so a short TTL
// trades a little staleness for far fewer ledger and gateway round trips.
// When Enabled is false or no Redis client is configured the cache is a
// no-op. Responses larger than MaxBodyBytes are served but never stored.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from the environment, with
// defaults suited to the verification traffic.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		TTL:          parseDur(getenv("CACHE_TTL", "30s")),
		Prefix:       getenv("CACHE_PREFIX", "credzi:verify:cache"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
