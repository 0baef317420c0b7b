package handler

import "rollcall/internal/binding"

// BindResponse reports the outcome of a bind or unbind.
type BindResponse struct {
	Bound    bool             `json:"bound"`
	Previous *binding.Binding `json:"previous,omitempty"`
}

// ConflictResponse is the 409 envelope for a role already bound elsewhere.
type ConflictResponse struct {
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Conflict         binding.Binding `json:"conflict"`
	GuildName        string          `json:"guild_name,omitempty"`
}
