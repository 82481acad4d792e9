package mutestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedisMuteStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	ms, err := NewRedisMuteStore("redis://localhost:6379/0", nil)
	if err != nil {
		t.Fail()
	}
	defer ms.Close()

	assert.NoError(ms.Unmute(ctx, "test1"))
	muted, err := ms.IsMuted(ctx, "test1")
	assert.NoError(err)
	assert.False(muted)

	assert.NoError(ms.Mute(ctx, "test1"))
	assert.NoError(ms.TempMute(ctx, "test1", time.Minute))
	rec, err := ms.Lookup(ctx, "test1")
	assert.NoError(err)
	assert.True(rec.Permanent)
	assert.NotNil(rec.Until)

	assert.NoError(ms.Unmute(ctx, "test1"))
	rec, err = ms.Lookup(ctx, "test1")
	assert.NoError(err)
	assert.Equal(MuteRecord{}, rec)

	assert.NoError(ms.TempMute(ctx, "test1", 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)
	muted, err = ms.IsMuted(ctx, "test1")
	assert.NoError(err)
	assert.False(muted)
}
