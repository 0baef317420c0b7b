package binding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rollcall/internal/registry"
	"rollcall/pkg/platform/sentinel"
)

// InMemory implements Store with two maps behind one mutex. All mutations
// take the write lock, so check-then-upsert sequences issued under the
// service's mutation lock observe a consistent state.
type InMemory struct {
	mu        sync.RWMutex
	guilds    map[string]string            // guild id -> role id
	positions map[registry.Position]string // position -> role id
}

// NewInMemory creates an empty in-memory binding store.
func NewInMemory() *InMemory {
	return &InMemory{
		guilds:    make(map[string]string),
		positions: make(map[registry.Position]string),
	}
}

func (s *InMemory) GetGuildBinding(ctx context.Context, guildID string) (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roleID, ok := s.guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("guild binding %s: %w", guildID, sentinel.ErrNotFound)
	}
	b := GuildBinding(guildID, roleID)
	return &b, nil
}

func (s *InMemory) GetPositionBinding(ctx context.Context, position registry.Position) (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roleID, ok := s.positions[position]
	if !ok {
		return nil, fmt.Errorf("position binding %s: %w", position, sentinel.ErrNotFound)
	}
	b := PositionBinding(position, roleID)
	return &b, nil
}

func (s *InMemory) FindByRole(ctx context.Context, roleID string) (*Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for guildID, role := range s.guilds {
		if role == roleID {
			b := GuildBinding(guildID, role)
			return &b, nil
		}
	}
	for position, role := range s.positions {
		if role == roleID {
			b := PositionBinding(position, role)
			return &b, nil
		}
	}
	return nil, fmt.Errorf("binding for role %s: %w", roleID, sentinel.ErrNotFound)
}

func (s *InMemory) UpsertGuildBinding(ctx context.Context, guildID, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[guildID] = roleID
	return nil
}

func (s *InMemory) UpsertPositionBinding(ctx context.Context, position registry.Position, roleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[position] = roleID
	return nil
}

func (s *InMemory) DeleteGuildBinding(ctx context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guilds, guildID)
	return nil
}

func (s *InMemory) DeletePositionBinding(ctx context.Context, position registry.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, position)
	return nil
}

func (s *InMemory) ListAll(ctx context.Context) ([]Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bindings := make([]Binding, 0, len(s.guilds)+len(s.positions))
	for guildID, roleID := range s.guilds {
		bindings = append(bindings, GuildBinding(guildID, roleID))
	}
	for position, roleID := range s.positions {
		bindings = append(bindings, PositionBinding(position, roleID))
	}
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Kind != bindings[j].Kind {
			return bindings[i].Kind < bindings[j].Kind
		}
		return bindings[i].Key < bindings[j].Key
	})
	return bindings, nil
}
