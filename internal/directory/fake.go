package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rollcall/pkg/platform/sentinel"
)

// Fake is a deterministic in-memory directory used by tests and local runs.
// A configurable latency mimics real-world calls.
type Fake struct {
	mu      sync.RWMutex
	space   map[string]Member // members of the HQ space
	users   map[string]Member // directory-wide identities
	invites map[string]string // invite ref -> target space id
	Latency time.Duration

	// FailList, when set, makes ListMembers fail as a whole unit.
	FailList bool
	// FailInvites lists refs whose resolution fails with a transport error
	// rather than cleanly reporting an invalid invite.
	FailInvites map[string]bool
}

// NewFake builds an empty fake directory.
func NewFake() *Fake {
	return &Fake{
		space:   make(map[string]Member),
		users:   make(map[string]Member),
		invites: make(map[string]string),
	}
}

// PutMember adds or replaces a member of the HQ space (and the directory-wide
// identity behind it).
func (f *Fake) PutMember(m Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.space[m.ID] = m
	f.users[m.ID] = m
}

// PutUser registers a directory-wide identity that is not in the HQ space.
func (f *Fake) PutUser(m Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[m.ID] = m
}

// RemoveMember drops a member from the HQ space, keeping the identity.
func (f *Fake) RemoveMember(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.space, id)
}

// PutInvite registers an invite ref resolving to a space id.
func (f *Fake) PutInvite(ref, targetID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites[ref] = targetID
}

func (f *Fake) ListMembers(ctx context.Context) ([]Member, error) {
	time.Sleep(f.Latency)
	if f.FailList {
		return nil, &UnavailableError{Reason: "fake list failure"}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	members := make([]Member, 0, len(f.space))
	for _, m := range f.space {
		members = append(members, m)
	}
	return members, nil
}

func (f *Fake) GetUser(ctx context.Context, id string) (*Member, error) {
	time.Sleep(f.Latency)
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return &m, nil
}

func (f *Fake) ResolveInvite(ctx context.Context, ref string) (string, error) {
	time.Sleep(f.Latency)
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.FailInvites[ref] {
		return "", &UnavailableError{Reason: "fake invite failure"}
	}
	target, ok := f.invites[ref]
	if !ok {
		return "", fmt.Errorf("invite %s: %w", ref, ErrInvalidInvite)
	}
	return target, nil
}
