package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "sla:status:abc", StatusKey("abc"))
}

func TestNewRedisStatusCacheDisabled(t *testing.T) {
	assert.IsType(t, NoopStatusCache{}, NewRedisStatusCache(nil, time.Minute))
	assert.IsType(t, NoopStatusCache{}, NewRedisStatusCache(unreachableClient(t), 0))
}

func TestNoopStatusCache(t *testing.T) {
	ctx := context.Background()
	c := NoopStatusCache{}
	require.NoError(t, c.SetMany(ctx, []StatusEntry{{TicketID: "a", Status: domain.SLAStatusBreached}}))
	got, err := c.GetMany(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, c.Invalidate(ctx, "a"))
}

func TestRedisStatusCacheSurfacesConnectionErrors(t *testing.T) {
	ctx := context.Background()
	c := NewRedisStatusCache(unreachableClient(t), time.Minute)

	_, err := c.GetMany(ctx, []string{"a"})
	assert.Error(t, err)
	assert.Error(t, c.SetMany(ctx, []StatusEntry{{TicketID: "a", Status: domain.SLAStatusOnTrack, ValidFor: time.Hour}}))

	got, err := c.GetMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStatusEntryExpiry(t *testing.T) {
	c := &RedisStatusCache{ttl: time.Minute}
	cases := []struct {
		name     string
		validFor time.Duration
		want     time.Duration
		stored   bool
	}{
		{"unbounded uses ttl", 0, time.Minute, true},
		{"longer than ttl", time.Hour, time.Minute, true},
		{"threshold before ttl", 20 * time.Second, 20 * time.Second, true},
		{"threshold too close", time.Microsecond, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.expiry(StatusEntry{TicketID: "a", Status: domain.SLAStatusOnTrack, ValidFor: tc.validFor})
			assert.Equal(t, tc.stored, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRedisLockerUnavailable(t *testing.T) {
	_, err := NewRedisLocker(unreachableClient(t)).Acquire(context.Background(), EscalationLockKey, time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)

	_, err = NewRedisLocker(nil).Acquire(context.Background(), EscalationLockKey, time.Second)
	assert.Error(t, err)
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	l.clock = func() time.Time { return now }

	lease, err := l.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "job", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	_, err = l.Acquire(ctx, "other", time.Minute)
	assert.NoError(t, err)

	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = l.Acquire(ctx, "job", time.Minute)
	assert.NoError(t, err, "expired lease is reclaimed")
}
