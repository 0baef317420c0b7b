package guildcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rollcall/internal/registry"
)

// Memory is an in-process guild cache with a TTL. Suitable for single
// instance deployments and tests.
type Memory struct {
	registry registry.Client
	ttl      time.Duration

	mu        sync.RWMutex
	guilds    []registry.Guild
	fetchedAt time.Time
	now       func() time.Time
}

// NewMemory builds an in-process cache over the registry client.
func NewMemory(reg registry.Client, ttl time.Duration) *Memory {
	return &Memory{
		registry: reg,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *Memory) Guilds(ctx context.Context) ([]registry.Guild, error) {
	m.mu.RLock()
	if m.guilds != nil && m.now().Sub(m.fetchedAt) < m.ttl {
		guilds := m.guilds
		m.mu.RUnlock()
		return guilds, nil
	}
	m.mu.RUnlock()

	if err := m.Refresh(ctx); err != nil {
		// A stale snapshot beats an error for interactive search.
		m.mu.RLock()
		defer m.mu.RUnlock()
		if m.guilds != nil {
			return m.guilds, nil
		}
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.guilds, nil
}

func (m *Memory) Refresh(ctx context.Context) error {
	guilds, err := m.registry.ListGuilds(ctx)
	if err != nil {
		return fmt.Errorf("refresh guild cache: %w", err)
	}
	m.mu.Lock()
	m.guilds = guilds
	m.fetchedAt = m.now()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Search(ctx context.Context, query string, limit int) ([]registry.Guild, error) {
	guilds, err := m.Guilds(ctx)
	if err != nil {
		return nil, err
	}
	return match(guilds, query, limit), nil
}
