// Package binding holds the durable mapping between domain keys (guild ids
// and fixed position names) and directory role identifiers, plus the
// mutation policy that enforces the role uniqueness invariant.
package binding

import "rollcall/internal/registry"

// Kind distinguishes the two logical binding tables.
type Kind string

const (
	KindGuild    Kind = "guild"
	KindPosition Kind = "position"
)

// Binding associates a domain key with a directory role id. A given role id
// may be the target of at most one binding, across both kinds.
type Binding struct {
	Kind   Kind   `json:"kind"`
	Key    string `json:"key"`
	RoleID string `json:"role_id"`
}

// GuildBinding builds a guild-kind binding value.
func GuildBinding(guildID, roleID string) Binding {
	return Binding{Kind: KindGuild, Key: guildID, RoleID: roleID}
}

// PositionBinding builds a position-kind binding value.
func PositionBinding(position registry.Position, roleID string) Binding {
	return Binding{Kind: KindPosition, Key: string(position), RoleID: roleID}
}
