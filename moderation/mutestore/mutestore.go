package mutestore

import (
	"context"
	"time"
)

// Mute state of a single user. Permanent and temporary mutes are tracked independently; both may be set at once.
type MuteRecord struct {
	Permanent bool `json:"permanent"`
	// Absolute expiry of the temporary mute. Nil when there is no temporary mute.
	Until *time.Time `json:"until,omitempty"`
}

// Whether the record blocks messages at the given time. A temporary mute is active only while its expiry is strictly in the future.
func (r MuteRecord) ActiveAt(now time.Time) bool {
	if r.Permanent {
		return true
	}
	return r.Until != nil && r.Until.After(now)
}

type MuteStore interface {
	// Reports whether the user is currently muted. Expired temporary mutes are removed as part of every check.
	IsMuted(ctx context.Context, user string) (bool, error)
	// Same purge-then-check as IsMuted, returning the full (post-purge) record.
	Lookup(ctx context.Context, user string) (MuteRecord, error)
	// Adds user to the permanent mute set. Idempotent.
	Mute(ctx context.Context, user string) error
	// Clears both permanent and temporary mutes. Idempotent.
	Unmute(ctx context.Context, user string) error
	// Sets the temporary mute expiry to now+d, overwriting any prior temporary mute (last write wins).
	TempMute(ctx context.Context, user string, d time.Duration) error
}
