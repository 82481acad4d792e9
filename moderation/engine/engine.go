package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hushmod/hush/moderation/countstore"
	"github.com/hushmod/hush/moderation/keyword"
	"github.com/hushmod/hush/moderation/mutestore"
	"github.com/hushmod/hush/moderation/ratestore"
)

// Counter names for per-user violation tallies.
const (
	CounterRateViolations    = "violation-rate"
	CounterContentViolations = "violation-content"
)

// Admission gate: evaluates each inbound message against mute state, the rate limiter, and content rules, installing temporary mutes on violation.
//
// An Engine is an explicitly constructed value owned by the host; several independent engines (eg, one per channel) can run side by side with separate stores. Mutes and Rates are required. Patterns and Counters are optional. Zero Config durations fall back to DefaultRateMuteDuration and DefaultContentMuteDuration.
type Engine struct {
	Logger   *slog.Logger
	Mutes    mutestore.MuteStore
	Rates    ratestore.RateLimiter
	Patterns *keyword.PatternSet
	// used to tally violations per user (optional)
	Counters countstore.CountStore
	Config   Config
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger == nil {
		return slog.Default()
	}
	return eng.Logger
}

func validateUser(user string) error {
	if user == "" {
		return fmt.Errorf("%w: empty user identifier", ErrInvalidInput)
	}
	return nil
}

// Returns true if the message should be accepted.
func (eng *Engine) Handle(ctx context.Context, user, text string) (bool, error) {
	d, err := eng.Evaluate(ctx, user, text)
	if err != nil {
		return false, err
	}
	return d.Accepted, nil
}

// Runs the admission checks in order (mute, rate, content), stopping at the first rejection.
//
// Already-muted users are rejected without touching the rate limiter, and a rate-limited message is never checked against content rules.
func (eng *Engine) Evaluate(ctx context.Context, user, text string) (*Decision, error) {
	start := time.Now()
	d, err := eng.evaluate(ctx, user, text)
	messageDecisionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		messageErrorCount.Inc()
		return nil, err
	}
	messageDecisionCount.WithLabelValues(d.Label()).Inc()
	return d, nil
}

func (eng *Engine) evaluate(ctx context.Context, user, text string) (*Decision, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	logger := eng.logger().With("user", user)

	muted, err := eng.Mutes.IsMuted(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("checking mute state: %w", err)
	}
	if muted {
		logger.Info("message rejected", "reason", ReasonMuted)
		return &Decision{Accepted: false, Reason: ReasonMuted}, nil
	}

	limited, err := eng.Rates.CheckAndRecord(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("checking rate limit: %w", err)
	}
	if limited {
		return eng.violation(ctx, logger, user, ReasonRateLimited, eng.Config.withDefaults().RateMuteDuration, nil)
	}

	if eng.Patterns != nil {
		if p, ok := eng.Patterns.Match(text); ok {
			return eng.violation(ctx, logger, user, ReasonProhibitedContent, eng.Config.withDefaults().ContentMuteDuration, &p)
		}
	}

	logger.Debug("message accepted")
	return &Decision{Accepted: true}, nil
}

func (eng *Engine) violation(ctx context.Context, logger *slog.Logger, user, reason string, dur time.Duration, p *keyword.Pattern) (*Decision, error) {
	if err := eng.Mutes.TempMute(ctx, user, dur); err != nil {
		return nil, fmt.Errorf("applying temporary mute: %w", err)
	}
	autoMuteCount.WithLabelValues(reason).Inc()

	if eng.Counters != nil {
		name := CounterRateViolations
		if reason == ReasonProhibitedContent {
			name = CounterContentViolations
		}
		// tallies are informational; a failure here doesn't change the decision
		if err := eng.Counters.Increment(ctx, name, user); err != nil {
			logger.Warn("failed to increment violation counter", "counter", name, "err", err)
		}
	}

	if p != nil {
		logger.Info("message rejected", "reason", reason, "muteDuration", dur, "pattern", p.String())
	} else {
		logger.Info("message rejected", "reason", reason, "muteDuration", dur)
	}
	return &Decision{
		Accepted:     false,
		Reason:       reason,
		MuteDuration: dur,
		Pattern:      p,
	}, nil
}

// Permanently mutes a user, until Unmute.
func (eng *Engine) Mute(ctx context.Context, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := eng.Mutes.Mute(ctx, user); err != nil {
		return fmt.Errorf("muting user: %w", err)
	}
	adminActionCount.WithLabelValues("mute").Inc()
	eng.logger().Info("user muted", "user", user)
	return nil
}

// Restores access: clears both permanent and temporary mutes, and the user's rate-limit window.
func (eng *Engine) Unmute(ctx context.Context, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if err := eng.Mutes.Unmute(ctx, user); err != nil {
		return fmt.Errorf("unmuting user: %w", err)
	}
	if err := eng.Rates.Reset(ctx, user); err != nil {
		return fmt.Errorf("resetting rate window: %w", err)
	}
	adminActionCount.WithLabelValues("unmute").Inc()
	eng.logger().Info("user unmuted", "user", user)
	return nil
}

// largest minute count representable as a time.Duration
const maxTempMuteMinutes = math.MaxInt64 / int64(time.Minute)

// Temporarily mutes a user for the given number of minutes, replacing any earlier temporary mute.
func (eng *Engine) TempMute(ctx context.Context, user string, minutes int) error {
	if int64(minutes) > maxTempMuteMinutes {
		return fmt.Errorf("%w: temporary mute too long: %d minutes", ErrInvalidInput, minutes)
	}
	return eng.TempMuteDuration(ctx, user, time.Duration(minutes)*time.Minute)
}

func (eng *Engine) TempMuteDuration(ctx context.Context, user string, dur time.Duration) error {
	if err := validateUser(user); err != nil {
		return err
	}
	if dur <= 0 {
		return fmt.Errorf("%w: temporary mute duration must be positive: %s", ErrInvalidInput, dur)
	}
	if err := eng.Mutes.TempMute(ctx, user, dur); err != nil {
		return fmt.Errorf("temporarily muting user: %w", err)
	}
	adminActionCount.WithLabelValues("tempmute").Inc()
	eng.logger().Info("user temporarily muted", "user", user, "duration", dur)
	return nil
}

// Current mute record and total violation counts for a user. Reading the record purges an expired temporary mute, like any other check.
func (eng *Engine) Status(ctx context.Context, user string) (*UserStatus, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	rec, err := eng.Mutes.Lookup(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("reading mute state: %w", err)
	}
	st := UserStatus{
		User:       user,
		Mute:       rec,
		Muted:      rec.Permanent || rec.Until != nil,
		Violations: map[string]int{},
	}
	if eng.Counters != nil {
		for _, name := range []string{CounterRateViolations, CounterContentViolations} {
			c, err := eng.Counters.GetCount(ctx, name, user, countstore.PeriodTotal)
			if err != nil {
				return nil, fmt.Errorf("reading violation counter: %w", err)
			}
			st.Violations[name] = c
		}
	}
	return &st, nil
}
