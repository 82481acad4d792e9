package mutestore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

var redisPermanentKey string = "mute/permanent"
var redisTempPrefix string = "mute/temp/"

// deletes the key only if it still holds the expiry we saw, so a concurrent re-mute is never purged
var purgeExpiredScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Mute store backed by redis. Permanent mutes are members of a single set; each temporary mute is a key holding the expiry (unix milliseconds).
//
// Expiry is decided against the store's Clock, not redis server time; the key TTL is only a backstop for keys nobody checks again.
type RedisMuteStore struct {
	Client *redis.Client
	Clock  clock.Clock
}

var _ MuteStore = (*RedisMuteStore)(nil)

func NewRedisMuteStore(redisURL string, clk clock.Clock) (*RedisMuteStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &RedisMuteStore{
		Client: rdb,
		Clock:  clk,
	}, nil
}

func (s *RedisMuteStore) Close() error {
	return s.Client.Close()
}

func (s *RedisMuteStore) IsMuted(ctx context.Context, user string) (bool, error) {
	now := s.Clock.Now()
	rec, err := s.lookupAt(ctx, user, now)
	if err != nil {
		return false, err
	}
	return rec.ActiveAt(now), nil
}

func (s *RedisMuteStore) Lookup(ctx context.Context, user string) (MuteRecord, error) {
	return s.lookupAt(ctx, user, s.Clock.Now())
}

func (s *RedisMuteStore) lookupAt(ctx context.Context, user string, now time.Time) (MuteRecord, error) {
	key := redisTempPrefix + user

	// both reads in a single redis round-trip
	multi := s.Client.Pipeline()
	perm := multi.SIsMember(ctx, redisPermanentKey, user)
	temp := multi.Get(ctx, key)
	if _, err := multi.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return MuteRecord{}, err
	}
	if err := perm.Err(); err != nil {
		return MuteRecord{}, err
	}

	rec := MuteRecord{Permanent: perm.Val()}
	raw, err := temp.Result()
	if errors.Is(err, redis.Nil) {
		return rec, nil
	} else if err != nil {
		return MuteRecord{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return MuteRecord{}, err
	}
	until := time.UnixMilli(ms)
	if until.After(now) {
		rec.Until = &until
		return rec, nil
	}
	if err := purgeExpiredScript.Run(ctx, s.Client, []string{key}, raw).Err(); err != nil {
		return MuteRecord{}, err
	}
	return rec, nil
}

func (s *RedisMuteStore) Mute(ctx context.Context, user string) error {
	return s.Client.SAdd(ctx, redisPermanentKey, user).Err()
}

func (s *RedisMuteStore) Unmute(ctx context.Context, user string) error {
	multi := s.Client.TxPipeline()
	multi.SRem(ctx, redisPermanentKey, user)
	multi.Del(ctx, redisTempPrefix+user)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisMuteStore) TempMute(ctx context.Context, user string, d time.Duration) error {
	until := s.Clock.Now().Add(d)
	return s.Client.SetArgs(ctx, redisTempPrefix+user, strconv.FormatInt(until.UnixMilli(), 10), redis.SetArgs{
		ExpireAt: until,
	}).Err()
}
