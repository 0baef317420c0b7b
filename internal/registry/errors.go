package registry

import (
	"fmt"

	"rollcall/pkg/platform/sentinel"
)

// UnavailableError reports a registry transport failure. The whole audit
// aborts on it; callers decide whether to retry.
type UnavailableError struct {
	Status int
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("registry unavailable: %d %s", e.Status, e.Reason)
}

// Unwrap lets errors.Is(err, sentinel.ErrUnavailable) hold.
func (e *UnavailableError) Unwrap() error { return sentinel.ErrUnavailable }

// MalformedDataError reports a registry record that failed schema validation
// at the boundary.
type MalformedDataError struct {
	Entity string
	ID     string
	Detail string
}

func (e *MalformedDataError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed registry %s: %s", e.Entity, e.Detail)
	}
	return fmt.Sprintf("malformed registry %s %s: %s", e.Entity, e.ID, e.Detail)
}
