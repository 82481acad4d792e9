package mutestore

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
)

// In-process mute store. Each user's record is updated atomically (per-key locking), so the purge-then-check step never interleaves for the same user, and different users never contend on a global lock.
type MemMuteStore struct {
	Records *xsync.MapOf[string, MuteRecord]
	Clock   clock.Clock
}

var _ MuteStore = (*MemMuteStore)(nil)

func NewMemMuteStore(clk clock.Clock) *MemMuteStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemMuteStore{
		Records: xsync.NewMapOf[string, MuteRecord](),
		Clock:   clk,
	}
}

func (s *MemMuteStore) IsMuted(ctx context.Context, user string) (bool, error) {
	now := s.Clock.Now()
	return s.lookupAt(user, now).ActiveAt(now), nil
}

func (s *MemMuteStore) Lookup(ctx context.Context, user string) (MuteRecord, error) {
	return s.lookupAt(user, s.Clock.Now()), nil
}

// purge and read happen under the same per-key lock, against a single clock reading
func (s *MemMuteStore) lookupAt(user string, now time.Time) MuteRecord {
	var out MuteRecord
	s.Records.Compute(user, func(rec MuteRecord, loaded bool) (MuteRecord, bool) {
		if !loaded {
			// nothing stored; "delete" of a missing key is a no-op
			return rec, true
		}
		if rec.Until != nil && !rec.Until.After(now) {
			rec.Until = nil
		}
		out = rec
		return rec, !rec.Permanent && rec.Until == nil
	})
	return out
}

func (s *MemMuteStore) Mute(ctx context.Context, user string) error {
	s.Records.Compute(user, func(rec MuteRecord, loaded bool) (MuteRecord, bool) {
		rec.Permanent = true
		return rec, false
	})
	return nil
}

func (s *MemMuteStore) Unmute(ctx context.Context, user string) error {
	s.Records.Delete(user)
	return nil
}

func (s *MemMuteStore) TempMute(ctx context.Context, user string, d time.Duration) error {
	until := s.Clock.Now().Add(d)
	s.Records.Compute(user, func(rec MuteRecord, loaded bool) (MuteRecord, bool) {
		rec.Until = &until
		return rec, false
	})
	return nil
}
