package countstore

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
)

type MemCountStore struct {
	Counts map[string]int
	Clock  clock.Clock
	mu     sync.Mutex
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore(clk clock.Clock) *MemCountStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemCountStore{
		Counts: make(map[string]int),
		Clock:  clk,
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Counts[periodBucket(name, val, period, s.Clock.Now())]
	if !ok {
		return 0, nil
	}
	return v, nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	now := s.Clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		k := periodBucket(name, val, p, now)
		s.Counts[k] = s.Counts[k] + 1
	}
	return nil
}
