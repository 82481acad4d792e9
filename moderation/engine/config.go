package engine

import (
	"fmt"
	"time"
)

const (
	DefaultRateMuteDuration    = 5 * time.Minute
	DefaultContentMuteDuration = 10 * time.Minute
)

type Config struct {
	// Temporary mute installed when a user trips the rate limiter.
	RateMuteDuration time.Duration
	// Temporary mute installed when a message matches a prohibited-content rule.
	ContentMuteDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		RateMuteDuration:    DefaultRateMuteDuration,
		ContentMuteDuration: DefaultContentMuteDuration,
	}
}

// Mute durations to apply, with unset (zero or negative) fields replaced by the defaults.
func (c Config) withDefaults() Config {
	if c.RateMuteDuration <= 0 {
		c.RateMuteDuration = DefaultRateMuteDuration
	}
	if c.ContentMuteDuration <= 0 {
		c.ContentMuteDuration = DefaultContentMuteDuration
	}
	return c
}

func (c Config) Validate() error {
	if c.RateMuteDuration <= 0 {
		return fmt.Errorf("rate-violation mute duration must be positive: %s", c.RateMuteDuration)
	}
	if c.ContentMuteDuration <= 0 {
		return fmt.Errorf("content-violation mute duration must be positive: %s", c.ContentMuteDuration)
	}
	return nil
}
