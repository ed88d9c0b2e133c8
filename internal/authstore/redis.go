package authstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister stores snapshots as JSON strings in Redis.
type RedisPersister struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisPersister constructs a persister. ttl bounds how long an idle
// browser session is kept server-side; zero keeps entries forever.
func NewRedisPersister(client redis.UniversalClient, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, prefix: "auth:", ttl: ttl}
}

// Save writes the snapshot, overwriting any previous one.
func (p *RedisPersister) Save(ctx context.Context, key string, snap Snapshot) error {
	if key == "" {
		return errors.New("authstore: empty key")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("authstore: marshal: %w", err)
	}
	return p.client.Set(ctx, p.prefix+key, data, p.ttl).Err()
}

// Load reads the snapshot saved under key.
func (p *RedisPersister) Load(ctx context.Context, key string) (Snapshot, error) {
	if key == "" {
		return Snapshot{}, ErrNotFound
	}
	data, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("authstore: redis get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("authstore: unmarshal: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot saved under key.
func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return p.client.Del(ctx, p.prefix+key).Err()
}
