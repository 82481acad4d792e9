package ratestore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRedisRateLimiterBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	l, err := NewRedisRateLimiter("redis://localhost:6379/0", Config{MaxMessages: 3, Window: time.Second}, nil)
	if err != nil {
		t.Fail()
	}
	defer l.Close()

	assert.NoError(l.Reset(ctx, "test1"))
	for i := 0; i < 3; i++ {
		limited, err := l.CheckAndRecord(ctx, "test1")
		assert.NoError(err)
		assert.False(limited)
	}
	limited, err := l.CheckAndRecord(ctx, "test1")
	assert.NoError(err)
	assert.True(limited)

	time.Sleep(1100 * time.Millisecond)
	limited, err = l.CheckAndRecord(ctx, "test1")
	assert.NoError(err)
	assert.False(limited)
	assert.NoError(l.Reset(ctx, "test1"))
}

func TestRedisRateLimiterMemberUnique(t *testing.T) {
	assert := assert.New(t)

	// two processes sharing one redis, recording in the same microsecond with the same sequence number
	a := RedisRateLimiter{instance: uuid.NewString()}
	b := RedisRateLimiter{instance: uuid.NewString()}
	now := time.Now().UnixMicro()

	ma := a.member(now)
	mb := b.member(now)
	assert.NotEqual(ma, mb)
	assert.True(strings.HasPrefix(ma, fmt.Sprintf("%d-", now)))

	seen := map[string]bool{ma: true}
	for i := 0; i < 100; i++ {
		m := a.member(now)
		assert.False(seen[m], m)
		seen[m] = true
	}
}
