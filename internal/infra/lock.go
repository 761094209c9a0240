package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrRecursoOcupado is returned when a lock could not be taken in time.
var ErrRecursoOcupado = errors.New("recurso ocupado, reintente")

// RedisLocker serializes work on a key across every API instance.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	espera time.Duration
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), ttl: 30 * time.Second, espera: 5 * time.Second}
}

// Lock blocks until key is held or the wait budget runs out. The returned
// func releases the lock.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(l.espera/(50*time.Millisecond))),
	}
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrRecursoOcupado
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("lock: release failed")
		}
	}, nil
}

// LocalLocker is the single-process counterpart of RedisLocker. A key's
// slot lives only while someone holds or waits for it.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slotLocal
}

type slotLocal struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[string]*slotLocal{}}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &slotLocal{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.soltar(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.soltar(key, slot)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) soltar(key string, slot *slotLocal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
