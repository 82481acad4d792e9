package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hushmod/hush/moderation/keyword"
	"github.com/hushmod/hush/moderation/mutestore"
	"github.com/hushmod/hush/moderation/ratestore"

	"github.com/stretchr/testify/assert"
)

func TestEngineAcceptsBenign(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	ok, err := eng.Handle(ctx, "alice", "hello everyone")
	assert.NoError(err)
	assert.True(ok)

	d, err := eng.Evaluate(ctx, "alice", "")
	assert.NoError(err)
	assert.Equal(&Decision{Accepted: true}, d)
	assert.Equal("accepted", d.Label())
}

func TestEnginePermanentMute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, clk := EngineTestFixture()
	rates := eng.Rates.(*ratestore.MemRateLimiter)

	assert.NoError(eng.Mute(ctx, "alice"))
	for _, text := range []string{"hello", "free money", "hi again"} {
		d, err := eng.Evaluate(ctx, "alice", text)
		assert.NoError(err)
		assert.False(d.Accepted)
		assert.Equal(ReasonMuted, d.Reason)
		clk.Add(time.Hour)
	}
	// muted users don't consume rate budget
	assert.Equal(0, rates.Count("alice"))

	assert.NoError(eng.Unmute(ctx, "alice"))
	ok, err := eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.True(ok)
}

func TestEngineTempMuteExpires(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, clk := EngineTestFixture()

	assert.NoError(eng.TempMute(ctx, "alice", 5))
	ok, err := eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.False(ok)

	clk.Add(5 * time.Minute)
	ok, err = eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.True(ok)
}

func TestEngineRateLimit(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, clk := EngineTestFixture()
	rates := eng.Rates.(*ratestore.MemRateLimiter)

	for i := 0; i < ratestore.DefaultMaxMessages; i++ {
		ok, err := eng.Handle(ctx, "alice", fmt.Sprintf("message %d", i))
		assert.NoError(err)
		assert.True(ok, "message %d", i+1)
		clk.Add(time.Second)
	}

	// the 11th message within the window trips the limiter, and mutes for 5 minutes
	d, err := eng.Evaluate(ctx, "alice", "one more")
	assert.NoError(err)
	assert.False(d.Accepted)
	assert.Equal(ReasonRateLimited, d.Reason)
	assert.Equal(5*time.Minute, d.MuteDuration)

	rec, err := eng.Mutes.Lookup(ctx, "alice")
	assert.NoError(err)
	if assert.NotNil(rec.Until) {
		assert.Equal(clk.Now().Add(5*time.Minute), *rec.Until)
	}

	// the 12th is dropped by the mute, without reaching the rate limiter
	clk.Add(time.Second)
	d, err = eng.Evaluate(ctx, "alice", "and another")
	assert.NoError(err)
	assert.False(d.Accepted)
	assert.Equal(ReasonMuted, d.Reason)
	assert.Equal(11, rates.Count("alice"))

	// after the mute, the window has also drained
	clk.Add(5 * time.Minute)
	ok, err := eng.Handle(ctx, "alice", "back again")
	assert.NoError(err)
	assert.True(ok)
}

func TestEngineRateLimitBeforeContent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	for i := 0; i < ratestore.DefaultMaxMessages; i++ {
		ok, err := eng.Handle(ctx, "alice", "hi")
		assert.NoError(err)
		assert.True(ok)
	}

	// over the limit and prohibited: the rate violation wins, content is never inspected
	d, err := eng.Evaluate(ctx, "alice", "free money")
	assert.NoError(err)
	assert.Equal(ReasonRateLimited, d.Reason)
	assert.Equal(DefaultRateMuteDuration, d.MuteDuration)
	assert.Nil(d.Pattern)

	st, err := eng.Status(ctx, "alice")
	assert.NoError(err)
	assert.Equal(1, st.Violations[CounterRateViolations])
	assert.Equal(0, st.Violations[CounterContentViolations])
}

func TestEngineProhibitedContent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, clk := EngineTestFixture()

	d, err := eng.Evaluate(ctx, "alice", "get FREE MONEY now")
	assert.NoError(err)
	assert.False(d.Accepted)
	assert.Equal(ReasonProhibitedContent, d.Reason)
	assert.Equal(10*time.Minute, d.MuteDuration)
	if assert.NotNil(d.Pattern) {
		assert.Equal(keyword.Word("free money"), *d.Pattern)
	}

	st, err := eng.Status(ctx, "alice")
	assert.NoError(err)
	assert.True(st.Muted)
	assert.False(st.Mute.Permanent)
	if assert.NotNil(st.Mute.Until) {
		assert.Equal(clk.Now().Add(10*time.Minute), *st.Mute.Until)
	}
	assert.Equal(1, st.Violations[CounterContentViolations])

	// still muted after 5 minutes, free after 10
	clk.Add(5 * time.Minute)
	ok, err := eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.False(ok)
	clk.Add(5 * time.Minute)
	ok, err = eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.True(ok)
}

func TestEngineExpiredMuteIsPurged(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, clk := EngineTestFixture()
	mutes := eng.Mutes.(*mutestore.MemMuteStore)

	assert.NoError(eng.TempMute(ctx, "alice", 1))
	clk.Add(time.Minute)

	muted, err := eng.Mutes.IsMuted(ctx, "alice")
	assert.NoError(err)
	assert.False(muted)
	_, ok := mutes.Records.Load("alice")
	assert.False(ok)
}

func TestEngineUnmuteClearsBoth(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	assert.NoError(eng.Mute(ctx, "alice"))
	assert.NoError(eng.TempMute(ctx, "alice", 30))
	ok, err := eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(eng.Unmute(ctx, "alice"))
	st, err := eng.Status(ctx, "alice")
	assert.NoError(err)
	assert.False(st.Muted)
	assert.Equal(mutestore.MuteRecord{}, st.Mute)

	ok, err = eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.True(ok)
}

func TestEngineInvalidInput(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()

	_, err := eng.Handle(ctx, "", "hello")
	assert.ErrorIs(err, ErrInvalidInput)
	assert.ErrorIs(eng.Mute(ctx, ""), ErrInvalidInput)
	assert.ErrorIs(eng.Unmute(ctx, ""), ErrInvalidInput)
	assert.ErrorIs(eng.TempMute(ctx, "alice", 0), ErrInvalidInput)
	assert.ErrorIs(eng.TempMute(ctx, "alice", -5), ErrInvalidInput)
	// would overflow time.Duration and wrap around to a few seconds
	assert.ErrorIs(eng.TempMute(ctx, "alice", 153722867281), ErrInvalidInput)
	assert.ErrorIs(eng.TempMute(ctx, "alice", 307445734562), ErrInvalidInput)
	assert.NoError(eng.TempMute(ctx, "bob", int(maxTempMuteMinutes)))
	assert.NoError(eng.Unmute(ctx, "bob"))
	_, err = eng.Status(ctx, "")
	assert.ErrorIs(err, ErrInvalidInput)

	muted, err := eng.Mutes.IsMuted(ctx, "alice")
	assert.NoError(err)
	assert.False(muted)
}

func TestEngineNoPatterns(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()
	eng.Patterns = nil
	eng.Counters = nil

	ok, err := eng.Handle(ctx, "alice", "free money")
	assert.NoError(err)
	assert.True(ok)

	st, err := eng.Status(ctx, "alice")
	assert.NoError(err)
	assert.Empty(st.Violations)
}

func TestEngineConcurrentUsers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := EngineTestFixture()
	rates, err := ratestore.NewMemRateLimiter(ratestore.Config{MaxMessages: 1000, Window: time.Hour}, nil)
	assert.NoError(err)
	eng.Rates = rates

	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob"} {
		user := user
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					ok, err := eng.Handle(ctx, user, "hello")
					assert.NoError(err)
					assert.True(ok)
				}
			}()
		}
	}
	wg.Wait()

	assert.Equal(200, rates.Count("alice"))
	assert.Equal(200, rates.Count("bob"))
}

func TestConfigValidate(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(DefaultConfig().Validate())
	assert.Error(Config{RateMuteDuration: time.Minute}.Validate())
	assert.Error(Config{ContentMuteDuration: time.Minute}.Validate())
}

func TestEngineUnmuteResetsRateWindow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, clk := EngineTestFixture()

	for i := 0; i < ratestore.DefaultMaxMessages; i++ {
		ok, err := eng.Handle(ctx, "alice", "hi")
		assert.NoError(err)
		assert.True(ok)
	}
	ok, err := eng.Handle(ctx, "alice", "hi")
	assert.NoError(err)
	assert.False(ok)

	// without the reset, the stale window would re-mute alice on her next message
	assert.NoError(eng.Unmute(ctx, "alice"))
	ok, err = eng.Handle(ctx, "alice", "hi")
	assert.NoError(err)
	assert.True(ok)

	assert.NoError(eng.TempMuteDuration(ctx, "alice", 90*time.Second))
	clk.Add(89 * time.Second)
	ok, err = eng.Handle(ctx, "alice", "hi")
	assert.NoError(err)
	assert.False(ok)
	clk.Add(time.Second)
	ok, err = eng.Handle(ctx, "alice", "hi")
	assert.NoError(err)
	assert.True(ok)
}

func TestEngineZeroConfigUsesDefaults(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	clk := clock.NewMock()
	rates, err := ratestore.NewMemRateLimiter(ratestore.DefaultConfig(), clk)
	assert.NoError(err)
	eng := Engine{
		Mutes:    mutestore.NewMemMuteStore(clk),
		Rates:    rates,
		Patterns: keyword.MustNewPatternSet(keyword.DefaultPatterns()),
	}

	d, err := eng.Evaluate(ctx, "alice", "free money")
	assert.NoError(err)
	assert.False(d.Accepted)
	assert.Equal(DefaultContentMuteDuration, d.MuteDuration)

	ok, err := eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.False(ok)
	clk.Add(DefaultContentMuteDuration - time.Second)
	ok, err = eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.False(ok)
	clk.Add(time.Second)
	ok, err = eng.Handle(ctx, "alice", "hello")
	assert.NoError(err)
	assert.True(ok)

	for i := 0; i < ratestore.DefaultMaxMessages; i++ {
		_, err := eng.Handle(ctx, "bob", "hi")
		assert.NoError(err)
	}
	d, err = eng.Evaluate(ctx, "bob", "hi")
	assert.NoError(err)
	assert.Equal(ReasonRateLimited, d.Reason)
	assert.Equal(DefaultRateMuteDuration, d.MuteDuration)
}
