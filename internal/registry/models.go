package registry

// Position is one of the fixed council positions tracked by the registry.
type Position string

const (
	PositionOwner    Position = "owner"
	PositionAdvisor  Position = "advisor"
	PositionVoter    Position = "voter"
	PositionObserver Position = "observer"
)

// Positions lists the full fixed vocabulary.
var Positions = []Position{PositionOwner, PositionAdvisor, PositionVoter, PositionObserver}

// Valid reports whether p belongs to the fixed vocabulary.
func (p Position) Valid() bool {
	switch p {
	case PositionOwner, PositionAdvisor, PositionVoter, PositionObserver:
		return true
	}
	return false
}

// User is an immutable registry snapshot of one user and their position tags.
type User struct {
	ID           string     `json:"id"`
	PositionTags []Position `json:"roles"`
}

// HasTag reports whether the user carries the given position tag.
func (u User) HasTag(p Position) bool {
	for _, tag := range u.PositionTags {
		if tag == p {
			return true
		}
	}
	return false
}

// Validate checks the record against the expected schema. Registry data is
// not trusted blindly: a missing id or an unknown tag is a boundary error.
func (u User) Validate() error {
	if u.ID == "" {
		return &MalformedDataError{Entity: "user", Detail: "missing id"}
	}
	for _, tag := range u.PositionTags {
		if !tag.Valid() {
			return &MalformedDataError{Entity: "user", ID: u.ID, Detail: "unknown position tag " + string(tag)}
		}
	}
	return nil
}

// Guild is an immutable registry snapshot of one guild and its council slots.
// AdvisorID, VoterID and InviteRef are optional and empty when unset.
// CategoryTag is a display-only classification, never evaluated by the audit.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CategoryTag string `json:"category"`
	OwnerID     string `json:"owner"`
	AdvisorID   string `json:"advisor"`
	VoterID     string `json:"voter"`
	InviteRef   string `json:"invite"`
}

// Validate checks the record against the expected schema. The council
// invariants (owner set, voter matches a representative) are deliberately
// not enforced here: the audit reports them as discrepancies instead.
func (g Guild) Validate() error {
	if g.ID == "" {
		return &MalformedDataError{Entity: "guild", Detail: "missing id"}
	}
	if g.Name == "" {
		return &MalformedDataError{Entity: "guild", ID: g.ID, Detail: "missing name"}
	}
	return nil
}

// CouncilSlot returns the user id holding the given position on this guild,
// or "" when the slot is empty. Only owner, advisor and voter are per-guild
// slots; other positions return "".
func (g Guild) CouncilSlot(p Position) string {
	switch p {
	case PositionOwner:
		return g.OwnerID
	case PositionAdvisor:
		return g.AdvisorID
	case PositionVoter:
		return g.VoterID
	}
	return ""
}
