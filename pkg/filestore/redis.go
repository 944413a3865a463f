package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reportforge/reportforge/pkg/duration"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockerOptions configures a RedisLocker.
type RedisLockerOptions struct {
	// Prefix namespaces lock keys (default "reportforge:lock:").
	Prefix string

	// TTL expires a lock whose holder died (default duration.LockTTL).
	TTL time.Duration

	// Poll is the delay between acquisition attempts (default duration.LockPoll).
	Poll time.Duration

	// Wait bounds acquisition; exceeding it yields ErrLockTimeout
	// (default duration.LockTTL).
	Wait time.Duration

	// Logger for structured logging (default: slog.Default()).
	Logger *slog.Logger
}

// RedisLocker is a Locker shared by every instance connected to the same
// Redis. Locks are SET NX PX with a random token.
type RedisLocker struct {
	client redis.UniversalClient
	opts   RedisLockerOptions
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a RedisLocker over client.
func NewRedisLocker(client redis.UniversalClient, opts RedisLockerOptions) *RedisLocker {
	if opts.Prefix == "" {
		opts.Prefix = "reportforge:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = duration.LockTTL
	}
	if opts.Poll <= 0 {
		opts.Poll = duration.LockPoll
	}
	if opts.Wait <= 0 {
		opts.Wait = duration.LockTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RedisLocker{client: client, opts: opts}
}

// Lock acquires key across instances.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.opts.Prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, r.opts.Wait)
	defer cancel()

	ticker := time.NewTicker(r.opts.Poll)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(waitCtx, redisKey, token, r.opts.TTL).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, key, r.opts.Wait)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(redisKey, token) })
	}, nil
}

func (r *RedisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), duration.RedisConnect)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		r.opts.Logger.Warn("release lock failed",
			slog.String("key", redisKey),
			slog.String("error", err.Error()))
	}
}

// DialRedis parses a redis:// URL, connects and pings.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = duration.RedisConnect

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, duration.RedisConnect)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
