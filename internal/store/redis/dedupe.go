package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers create requests by card id so replays of the same create
// are recognized without touching the database.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

func createKey(cardID string) string {
	return "kanban:create:" + cardID
}

// Claim reports whether this is the first create seen for cardID within the
// TTL.
func (d *Deduper) Claim(ctx context.Context, cardID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, createKey(cardID), time.Now().UTC().Format(time.RFC3339Nano), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis.Deduper.Claim: %w", err)
	}
	return ok, nil
}

// Release forgets a claim so a failed create can be retried.
func (d *Deduper) Release(ctx context.Context, cardID string) error {
	if err := d.client.Del(ctx, createKey(cardID)).Err(); err != nil {
		return fmt.Errorf("redis.Deduper.Release: %w", err)
	}
	return nil
}
