// Package locker serializes processing per lead and deduplicates inbound
// message deliveries, backed by Redis with an in-process fallback.
package locker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"studio_sales_backend/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix  = "lead:lock:"
	dedupPrefix = "inbound:msg:"
	pollEvery   = 50 * time.Millisecond
)

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the lease forward only while this holder owns it.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// NewRedisClient builds a client from REDIS_URL and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Redis implements ports.LeadLocker and ports.MessageDeduper.
type Redis struct {
	client   *redis.Client
	lockTTL  time.Duration
	dedupTTL time.Duration
}

// NewRedis builds a Redis-backed locker. lockTTL bounds how long a crashed
// holder can block a lead; a live holder keeps extending its lease every
// lockTTL/3 until release. dedupTTL is how long message IDs are remembered.
func NewRedis(client *redis.Client, lockTTL, dedupTTL time.Duration) *Redis {
	return &Redis{client: client, lockTTL: lockTTL, dedupTTL: dedupTTL}
}

// Lock blocks until the lead is free or ctx is done.
func (r *Redis) Lock(ctx context.Context, contactID string) (func(), error) {
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	for {
		release, ok, err := r.TryLock(ctx, contactID)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TryLock takes the lock if it is free.
func (r *Redis) TryLock(ctx context.Context, contactID string) (func(), bool, error) {
	key := lockPrefix + contactID
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lead lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, token, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, r.client, []string{key}, token).Err()
		})
	}
	return release, true, nil
}

// keepAlive extends the lease until stop closes or ownership is lost.
func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := r.lockTTL / 3
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			owned, err := extendScript.Run(ctx, r.client, []string{key}, token, r.lockTTL.Milliseconds()).Int()
			cancel()
			if err == nil && owned == 0 {
				return
			}
		}
	}
}

// FirstSeen records messageID and reports whether it was new.
func (r *Redis) FirstSeen(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, dedupPrefix+messageID, 1, r.dedupTTL).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("dedupe inbound message: %w", err)
	}
	return ok, nil
}

// Forget removes messageID so the next delivery counts as new.
func (r *Redis) Forget(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	if err := r.client.Del(ctx, dedupPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("forget inbound message: %w", err)
	}
	return nil
}
