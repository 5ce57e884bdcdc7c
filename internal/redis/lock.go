// Package redisclient guards against concurrent automation sessions for the
// same caller phone with a per-phone Redis lock.
package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("booking lock not acquired")

// Locker serializes booking runs per caller phone. A nil *PhoneLocker is a
// valid no-op locker for deployments without Redis.
type Locker interface {
	WithPhoneLock(ctx context.Context, phone string, fn func(ctx context.Context) error) error
}

type PhoneLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, username, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     username,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

// NewPhoneLocker creates a locker with a per-phone key. The TTL must cover a
// whole browser run so a crashed process cannot wedge a caller forever.
func NewPhoneLocker(client *redis.Client, ttl time.Duration) *PhoneLocker {
	return &PhoneLocker{client: client, ttl: ttl}
}

func (l *PhoneLocker) WithPhoneLock(ctx context.Context, phone string, fn func(ctx context.Context) error) error {
	if l == nil || phone == "" {
		return fn(ctx)
	}

	key := "lock:booking:phone:" + phone
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}
	defer func() {
		_ = l.release(ctx, key, token)
	}()

	return fn(ctx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *PhoneLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
