// Package cache holds Redis backed helpers: a short lived cache of computed
// SLA statuses for list views and the escalation job lock.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-escalation/internal/domain"
)

const statusKeyPrefix = "sla:status:"

// StatusCache caches computed SLA statuses. It is a read optimisation for
// list views only; the escalation engine always recomputes.
type StatusCache interface {
	GetMany(ctx context.Context, ticketIDs []string) (map[string]domain.SLAStatus, error)
	SetMany(ctx context.Context, entries []StatusEntry) error
	Invalidate(ctx context.Context, ticketIDs ...string) error
}

// StatusEntry is one status to cache. ValidFor bounds the key lifetime
// below the cache TTL; zero leaves the TTL alone.
type StatusEntry struct {
	TicketID string
	Status   domain.SLAStatus
	ValidFor time.Duration
}

// expiry is the key lifetime for e, or false when the entry would expire
// before redis could store it.
func (c *RedisStatusCache) expiry(e StatusEntry) (time.Duration, bool) {
	if e.ValidFor <= 0 || e.ValidFor >= c.ttl {
		return c.ttl, true
	}
	if e.ValidFor < time.Millisecond {
		return 0, false
	}
	return e.ValidFor, true
}

// RedisStatusCache stores statuses as plain string keys with a TTL.
type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStatusCache builds a cache. A non-positive ttl disables caching.
func NewRedisStatusCache(client *redis.Client, ttl time.Duration) StatusCache {
	if client == nil || ttl <= 0 {
		return NoopStatusCache{}
	}
	return &RedisStatusCache{client: client, ttl: ttl}
}

// StatusKey returns the redis key for a ticket.
func StatusKey(ticketID string) string {
	return statusKeyPrefix + ticketID
}

func (c *RedisStatusCache) GetMany(ctx context.Context, ticketIDs []string) (map[string]domain.SLAStatus, error) {
	out := make(map[string]domain.SLAStatus, len(ticketIDs))
	if len(ticketIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(ticketIDs))
	for i, id := range ticketIDs {
		keys[i] = StatusKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if status := domain.SLAStatus(s); status.Valid() {
			out[ticketIDs[i]] = status
		}
	}
	return out, nil
}

func (c *RedisStatusCache) SetMany(ctx context.Context, entries []StatusEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, e := range entries {
			if ttl, ok := c.expiry(e); ok {
				p.Set(ctx, StatusKey(e.TicketID), string(e.Status), ttl)
			}
		}
		return nil
	})
	return err
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, ticketIDs ...string) error {
	if len(ticketIDs) == 0 {
		return nil
	}
	keys := make([]string, len(ticketIDs))
	for i, id := range ticketIDs {
		keys[i] = StatusKey(id)
	}
	err := c.client.Del(ctx, keys...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// NoopStatusCache never stores anything.
type NoopStatusCache struct{}

func (NoopStatusCache) GetMany(context.Context, []string) (map[string]domain.SLAStatus, error) {
	return map[string]domain.SLAStatus{}, nil
}

func (NoopStatusCache) SetMany(context.Context, []StatusEntry) error { return nil }

func (NoopStatusCache) Invalidate(context.Context, ...string) error { return nil }
