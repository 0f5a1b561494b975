package interrupt

import (
	"fmt"
	"time"
)

const defaultTTL = "24h"

// Config holds suspension policy parameters.
type Config struct {
	// TTL is a time.ParseDuration string; "0" disables expiry.
	TTL string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// DefaultConfig returns the default policy: suspensions expire after 24 hours.
func DefaultConfig() Config {
	return Config{TTL: defaultTTL}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.TTL != "" {
		c.TTL = source.TTL
	}
}

// Duration parses TTL. An empty TTL means no expiry.
func (c *Config) Duration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidTTL, c.TTL)
	}
	return d, nil
}
