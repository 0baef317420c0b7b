// Package directory defines the contract to the membership directory that
// holds actual role assignments for members of the HQ organizational space.
// The core reads members and resolves invites; it never writes to the
// directory.
package directory

import (
	"context"
	"errors"
	"fmt"

	"rollcall/pkg/platform/sentinel"
)

// ErrInvalidInvite reports an invite reference that does not resolve.
var ErrInvalidInvite = errors.New("invalid invite")

// Member is a snapshot of one directory member and their assigned roles.
// Automated members (bots) are excluded from authorization checks.
type Member struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"display_name"`
	IsAutomated     bool     `json:"is_automated"`
	AssignedRoleIDs []string `json:"assigned_role_ids"`
}

// HasRole reports whether the member holds the given role id.
func (m Member) HasRole(roleID string) bool {
	for _, id := range m.AssignedRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Client exposes read access to the membership directory.
//
// ListMembers snapshots the HQ organizational space and fails as a whole
// unit on transport error. GetUser is a directory-wide identity lookup used
// opportunistically for display names; sentinel.ErrNotFound from it is
// informational, never fatal to an audit. ResolveInvite returns the id of
// the space the invite points into, or ErrInvalidInvite.
type Client interface {
	ListMembers(ctx context.Context) ([]Member, error)
	GetUser(ctx context.Context, id string) (*Member, error)
	ResolveInvite(ctx context.Context, ref string) (string, error)
}

// UnavailableError reports a directory transport failure; the whole audit
// aborts on it.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("directory unavailable: %s", e.Reason)
}

// Unwrap lets errors.Is(err, sentinel.ErrUnavailable) hold.
func (e *UnavailableError) Unwrap() error { return sentinel.ErrUnavailable }
