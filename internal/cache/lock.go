package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EscalationLockKey guards the escalation pass across processes.
const EscalationLockKey = "escalation:job:lock"

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another process")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker acquires named, expiring locks.
type Locker interface {
	// Acquire returns ErrLockHeld when the lock is taken. Any other error
	// means the lock backend is unavailable.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease releases an acquired lock.
type Lease interface {
	Release(ctx context.Context) error
}

// RedisLocker implements Locker with SET NX PX and a token checked on release.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker builds a locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("redis client not configured")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (r *redisLease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err()
}

// LocalLocker is an in-process Locker for single instance deployments and
// tests.
type LocalLocker struct {
	mu    chan struct{}
	held  map[string]time.Time
	clock func() time.Time
}

// NewLocalLocker builds a local locker.
func NewLocalLocker() *LocalLocker {
	l := &LocalLocker{mu: make(chan struct{}, 1), held: map[string]time.Time{}, clock: time.Now}
	return l
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	select {
	case l.mu <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.mu }()

	now := l.clock()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrLockHeld
	}
	l.held[key] = now.Add(ttl)
	return localLease{l: l, key: key}, nil
}

type localLease struct {
	l   *LocalLocker
	key string
}

func (r localLease) Release(ctx context.Context) error {
	select {
	case r.l.mu <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	delete(r.l.held, r.key)
	<-r.l.mu
	return nil
}
