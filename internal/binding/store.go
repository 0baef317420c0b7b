package binding

import (
	"context"

	"rollcall/internal/registry"
)

// Store persists bindings in two logical collections keyed by guild id and
// by position name. Point lookups return sentinel.ErrNotFound when absent;
// deletes are no-ops when absent. FindByRole scans both collections since
// the uniqueness invariant spans them.
type Store interface {
	GetGuildBinding(ctx context.Context, guildID string) (*Binding, error)
	GetPositionBinding(ctx context.Context, position registry.Position) (*Binding, error)
	FindByRole(ctx context.Context, roleID string) (*Binding, error)
	UpsertGuildBinding(ctx context.Context, guildID, roleID string) error
	UpsertPositionBinding(ctx context.Context, position registry.Position, roleID string) error
	DeleteGuildBinding(ctx context.Context, guildID string) error
	DeletePositionBinding(ctx context.Context, position registry.Position) error
	ListAll(ctx context.Context) ([]Binding, error)
}
