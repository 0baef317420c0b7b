package handler

import (
	"errors"

	"rollcall/internal/registry"
)

// BindGuildRequest binds or unbinds the role for a guild key. An empty
// role_id clears the binding.
type BindGuildRequest struct {
	GuildID string `json:"guild_id"`
	RoleID  string `json:"role_id"`
}

func (r BindGuildRequest) Validate() error {
	if r.GuildID == "" {
		return errors.New("guild_id is required")
	}
	return nil
}

// BindPositionRequest binds or unbinds the role for a position key. An empty
// role_id clears the binding.
type BindPositionRequest struct {
	Position string `json:"position"`
	RoleID   string `json:"role_id"`
}

func (r BindPositionRequest) Validate() error {
	if r.Position == "" {
		return errors.New("position is required")
	}
	if !registry.Position(r.Position).Valid() {
		return errors.New("position is not a known position name")
	}
	return nil
}
