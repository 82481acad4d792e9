package ratestore

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultMaxMessages = 10
	DefaultWindow      = 60 * time.Second
)

type Config struct {
	// Number of messages allowed within the trailing window. The next one trips the limiter.
	MaxMessages int
	// Width of the sliding window.
	Window time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxMessages: DefaultMaxMessages,
		Window:      DefaultWindow,
	}
}

func (c Config) Validate() error {
	if c.MaxMessages <= 0 {
		return fmt.Errorf("rate limit max messages must be positive: %d", c.MaxMessages)
	}
	if c.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive: %s", c.Window)
	}
	return nil
}

// Per-user sliding-window rate limiter.
type RateLimiter interface {
	// Purges timestamps older than the window, records the current call, and reports whether the user is now over the limit (count > MaxMessages).
	//
	// The call is recorded even when the result is "limited", so a user who keeps sending while limited keeps the window full.
	CheckAndRecord(ctx context.Context, user string) (bool, error)
	// Drops all recorded timestamps for the user.
	Reset(ctx context.Context, user string) error
}
