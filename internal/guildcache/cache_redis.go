package guildcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rollcall/internal/registry"
)

// Redis key for the serialized guild snapshot
const guildSnapshotKey = "guildcache:snapshot"

// Redis is a Redis-backed guild cache. Multiple instances share one snapshot
// and its expiry, so a refresh by any instance serves them all.
type Redis struct {
	client   *redis.Client
	registry registry.Client
	ttl      time.Duration
}

// NewRedis builds a Redis-backed cache over the registry client.
func NewRedis(client *redis.Client, reg registry.Client, ttl time.Duration) *Redis {
	return &Redis{
		client:   client,
		registry: reg,
		ttl:      ttl,
	}
}

func (r *Redis) Guilds(ctx context.Context) ([]registry.Guild, error) {
	raw, err := r.client.Get(ctx, guildSnapshotKey).Bytes()
	if err == nil {
		var guilds []registry.Guild
		if jsonErr := json.Unmarshal(raw, &guilds); jsonErr == nil {
			return guilds, nil
		}
		// Corrupt snapshot; fall through to a refetch that overwrites it.
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read guild snapshot: %w", err)
	}

	guilds, err := r.fetchAndStore(ctx)
	if err != nil {
		return nil, err
	}
	return guilds, nil
}

func (r *Redis) Refresh(ctx context.Context) error {
	_, err := r.fetchAndStore(ctx)
	return err
}

func (r *Redis) Search(ctx context.Context, query string, limit int) ([]registry.Guild, error) {
	guilds, err := r.Guilds(ctx)
	if err != nil {
		return nil, err
	}
	return match(guilds, query, limit), nil
}

func (r *Redis) fetchAndStore(ctx context.Context) ([]registry.Guild, error) {
	guilds, err := r.registry.ListGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh guild cache: %w", err)
	}
	raw, err := json.Marshal(guilds)
	if err != nil {
		return nil, fmt.Errorf("encode guild snapshot: %w", err)
	}
	if err := r.client.Set(ctx, guildSnapshotKey, raw, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store guild snapshot: %w", err)
	}
	return guilds, nil
}
