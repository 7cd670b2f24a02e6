package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/guildops/ticket-engine/pkg/util"
)

// Locker provides mutual exclusion scoped to an arbitrary key. The
// engine uses it to serialize the count-then-insert sequence of ticket
// creation per (guild, requester, department); concurrent creations
// queue on the lock and the excess ones then fail the limit check.
type Locker interface {
	// Acquire blocks until the lock is taken or ctx expires. The
	// returned release function is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// CreationKey builds the lock key guarding ticket creation.
func CreationKey(guildID, requesterID, departmentID string) string {
	return fmt.Sprintf("ticket:create:%s:%s:%s", guildID, requesterID, departmentID)
}

// RedisLocker implements Locker with SET NX polling and a TTL so a
// crashed holder cannot wedge creation forever.
type RedisLocker struct {
	client *redis.Client
	// retry interval between SET NX attempts
	interval time.Duration
}

// NewRedisLocker wraps a go-redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, interval: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, apperrors.NewStorageError(err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, apperrors.NewStorageError(ctx.Err())
		case <-time.After(l.interval):
		}
	}
	var once sync.Once
	release := func() {
		once.Do(func() {
			// Delete only when we still hold it.
			const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
			_ = l.client.Eval(context.Background(), script, []string{key}, token).Err()
		})
	}
	return release, nil
}

// MemoryLocker is the in-process Locker used by tests and single-node
// deployments without Redis.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLocker builds an empty locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	keyLock, ok := l.locks[key]
	if !ok {
		keyLock = &sync.Mutex{}
		l.locks[key] = keyLock
	}
	l.mu.Unlock()

	keyLock.Lock()
	var once sync.Once
	release := func() {
		once.Do(keyLock.Unlock)
	}
	return release, nil
}
