package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rollcall/pkg/platform/sentinel"
)

// Fake is a deterministic in-memory registry used by tests and local runs.
// A configurable latency mimics real-world calls.
type Fake struct {
	mu      sync.RWMutex
	users   map[string]User
	guilds  map[string]Guild
	Latency time.Duration

	// FailAll, when set, makes every call fail as unavailable.
	FailAll bool
}

// NewFake builds an empty fake registry.
func NewFake() *Fake {
	return &Fake{
		users:  make(map[string]User),
		guilds: make(map[string]Guild),
	}
}

// PutUser adds or replaces a user record.
func (f *Fake) PutUser(u User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

// PutGuild adds or replaces a guild record.
func (f *Fake) PutGuild(g Guild) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guilds[g.ID] = g
}

// RemoveGuild retires a guild from the registry.
func (f *Fake) RemoveGuild(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.guilds, id)
}

func (f *Fake) ListUsers(ctx context.Context) ([]User, error) {
	time.Sleep(f.Latency)
	if f.FailAll {
		return nil, &UnavailableError{Reason: "fake registry failure"}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	users := make([]User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *Fake) ListGuilds(ctx context.Context) ([]Guild, error) {
	time.Sleep(f.Latency)
	if f.FailAll {
		return nil, &UnavailableError{Reason: "fake registry failure"}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	guilds := make([]Guild, 0, len(f.guilds))
	for _, g := range f.guilds {
		guilds = append(guilds, g)
	}
	return guilds, nil
}

func (f *Fake) GetGuild(ctx context.Context, id string) (*Guild, error) {
	time.Sleep(f.Latency)
	if f.FailAll {
		return nil, &UnavailableError{Reason: "fake registry failure"}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.guilds[id]
	if !ok {
		return nil, fmt.Errorf("guild %s: %w", id, sentinel.ErrNotFound)
	}
	return &g, nil
}
