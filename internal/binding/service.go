package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"rollcall/internal/platform/metrics"
	"rollcall/internal/registry"
	"rollcall/pkg/platform/sentinel"
)

// Service applies bind/unbind requests against the Store, enforcing the
// invariant that a role id targets at most one binding across both kinds.
// Mutations are serialized so check-then-upsert observes a consistent state;
// concurrent binds for the same role id cannot both succeed.
type Service struct {
	mu       sync.Mutex
	store    Store
	registry registry.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the mutation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds a mutation policy over the given store and registry.
func NewService(store Store, reg registry.Client, opts ...Option) *Service {
	s := &Service{
		store:    store,
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BindGuild binds a directory role to a guild. Returns the previous binding
// under the guild key, if any, for display purposes.
func (s *Service) BindGuild(ctx context.Context, guildID, roleID string) (*Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRoleFree(ctx, roleID); err != nil {
		return nil, err
	}

	// The guild must resolve against the registry before it can be bound.
	if _, err := s.registry.GetGuild(ctx, guildID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejected("invalid_guild")
			return nil, fmt.Errorf("bind guild %s: %w", guildID, ErrInvalidGuild)
		}
		return nil, fmt.Errorf("resolve guild %s: %w", guildID, err)
	}

	prev, err := s.store.GetGuildBinding(ctx, guildID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	if err := s.store.UpsertGuildBinding(ctx, guildID, roleID); err != nil {
		return nil, err
	}
	s.applied()
	s.logger.InfoContext(ctx, "guild binding applied",
		"guild_id", guildID, "role_id", roleID)
	return prev, nil
}

// BindPosition binds a directory role to a fixed position name. Returns the
// previous binding under the position key, if any.
func (s *Service) BindPosition(ctx context.Context, position registry.Position, roleID string) (*Binding, error) {
	if !position.Valid() {
		return nil, fmt.Errorf("bind position %q: not a known position", position)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRoleFree(ctx, roleID); err != nil {
		return nil, err
	}

	prev, err := s.store.GetPositionBinding(ctx, position)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	if err := s.store.UpsertPositionBinding(ctx, position, roleID); err != nil {
		return nil, err
	}
	s.applied()
	s.logger.InfoContext(ctx, "position binding applied",
		"position", position, "role_id", roleID)
	return prev, nil
}

// UnbindGuild deletes the binding under a guild key; a no-op if none exists.
func (s *Service) UnbindGuild(ctx context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.DeleteGuildBinding(ctx, guildID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "guild binding removed", "guild_id", guildID)
	return nil
}

// UnbindPosition deletes the binding under a position key; a no-op if none
// exists.
func (s *Service) UnbindPosition(ctx context.Context, position registry.Position) error {
	if !position.Valid() {
		return fmt.Errorf("unbind position %q: not a known position", position)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.DeletePositionBinding(ctx, position); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "position binding removed", "position", position)
	return nil
}

// requireRoleFree enforces the cross-table uniqueness invariant for roleID.
//
// A role bound to a guild that no longer resolves in the registry is stale:
// the stale binding is deleted and the new bind proceeds. Positions never go
// stale, so a position conflict always rejects. A registry transport failure
// during the staleness probe aborts the bind; retirement must not be inferred
// from an outage.
func (s *Service) requireRoleFree(ctx context.Context, roleID string) error {
	existing, err := s.store.FindByRole(ctx, roleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}

	if existing.Kind == KindPosition {
		s.rejected("role_already_bound")
		return &RoleAlreadyBoundError{Conflict: *existing}
	}

	guild, err := s.registry.GetGuild(ctx, existing.Key)
	if err == nil {
		s.rejected("role_already_bound")
		return &RoleAlreadyBoundError{Conflict: *existing, GuildName: guild.Name}
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("probe bound guild %s: %w", existing.Key, err)
	}

	// The bound guild was retired from the registry; self-heal and proceed.
	if err := s.store.DeleteGuildBinding(ctx, existing.Key); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "stale guild binding removed",
		"guild_id", existing.Key, "role_id", roleID)
	return nil
}

func (s *Service) applied() {
	if s.metrics != nil {
		s.metrics.IncrementBindsApplied()
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementBindsRejected(reason)
	}
}
