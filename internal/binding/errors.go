package binding

import (
	"errors"
	"fmt"
)

// ErrInvalidGuild rejects a bind request whose guild id does not resolve
// against the registry.
var ErrInvalidGuild = errors.New("unknown guild")

// RoleAlreadyBoundError rejects a bind request whose role id is already the
// target of another binding. Conflict identifies the existing binding;
// GuildName is filled in when the conflicting guild still resolves.
type RoleAlreadyBoundError struct {
	Conflict  Binding
	GuildName string
}

func (e *RoleAlreadyBoundError) Error() string {
	if e.Conflict.Kind == KindGuild {
		name := e.GuildName
		if name == "" {
			name = e.Conflict.Key
		}
		return fmt.Sprintf("role %s is already bound to guild %s", e.Conflict.RoleID, name)
	}
	return fmt.Sprintf("role %s is already bound as the %s role", e.Conflict.RoleID, e.Conflict.Key)
}
