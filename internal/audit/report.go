// Package audit implements the reconciliation engine: it derives expected
// role assignments from registry data plus bindings, compares them against
// the directory's actual assignments, and classifies every discrepancy.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Stats summarizes the snapshot an audit ran against.
type Stats struct {
	Users       int `json:"users"`
	Guilds      int `json:"guilds"`
	Advisorless int `json:"advisorless"`
}

// GuildRef identifies a guild in a report entry.
type GuildRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CategoryTag string `json:"category,omitempty"`
}

// RepresentativeRole labels how a user represents a guild.
type RepresentativeRole string

const (
	RoleOwner        RepresentativeRole = "Owner"
	RoleAdvisor      RepresentativeRole = "Advisor"
	RoleOwnerAdvisor RepresentativeRole = "Owner + Advisor"
)

// GuildRole pairs a guild with the role a user holds on it.
type GuildRole struct {
	Guild GuildRef           `json:"guild"`
	Role  RepresentativeRole `json:"role"`
}

// DuplicateRepresentative reports a user representing more than one guild.
type DuplicateRepresentative struct {
	UserID string      `json:"user_id"`
	Guilds []GuildRole `json:"guilds"`
}

// DuplicateVoter reports a voter id shared by more than one guild.
type DuplicateVoter struct {
	VoterID string     `json:"voter_id"`
	Guilds  []GuildRef `json:"guilds"`
}

// InviteIssueKind classifies an invite discrepancy.
type InviteIssueKind string

const (
	InviteMissing     InviteIssueKind = "missing"
	InviteInvalid     InviteIssueKind = "invalid"
	InviteMisdirected InviteIssueKind = "misdirected"
	InviteUnresolved  InviteIssueKind = "unresolved"
)

// InviteIssue reports one guild's invite discrepancy.
type InviteIssue struct {
	Guild     GuildRef        `json:"guild"`
	Kind      InviteIssueKind `json:"kind"`
	InviteRef string          `json:"invite_ref,omitempty"`
	TargetID  string          `json:"target_id,omitempty"`
}

// RegistryIntegrity holds the pure registry-side findings (Pass A).
type RegistryIntegrity struct {
	Ownerless                []GuildRef                `json:"ownerless"`
	Voterless                []GuildRef                `json:"voterless"`
	DuplicateRepresentatives []DuplicateRepresentative `json:"duplicate_representatives"`
	WrongVoter               []GuildRef                `json:"wrong_voter"`
	DuplicateVoters          []DuplicateVoter          `json:"duplicate_voters"`
	InvalidInvites           []InviteIssue             `json:"invalid_invites"`
}

// MemberRef identifies a member (or registry user) in a report entry.
type MemberRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// RoleDrift reports one member's desynced roles: expected roles they are
// missing, and bound roles they hold without justification.
type RoleDrift struct {
	Member            MemberRef `json:"member"`
	MissingRoleIDs    []string  `json:"missing_role_ids,omitempty"`
	UnexpectedRoleIDs []string  `json:"unexpected_role_ids,omitempty"`
}

// MembershipSync holds the directory-side findings (Passes B-D).
type MembershipSync struct {
	UnauthorizedMembers   []MemberRef `json:"unauthorized_members"`
	MissingCouncilMembers []MemberRef `json:"missing_council_members"`
	DesyncedRoles         []RoleDrift `json:"desynced_roles"`
}

// Report is the full audit result. Every category degrades to an empty list
// rather than being omitted, so the shape is stable for presentation layers.
type Report struct {
	RunID     uuid.UUID         `json:"run_id"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration_ns"`
	Stats     Stats             `json:"stats"`
	Registry  RegistryIntegrity `json:"registry_integrity"`
	Sync      MembershipSync    `json:"membership_sync"`
	Disabled  []Feature         `json:"disabled_categories,omitempty"`
}

func newReport(runID uuid.UUID, startedAt time.Time) *Report {
	return &Report{
		RunID:     runID,
		StartedAt: startedAt,
		Registry: RegistryIntegrity{
			Ownerless:                []GuildRef{},
			Voterless:                []GuildRef{},
			DuplicateRepresentatives: []DuplicateRepresentative{},
			WrongVoter:               []GuildRef{},
			DuplicateVoters:          []DuplicateVoter{},
			InvalidInvites:           []InviteIssue{},
		},
		Sync: MembershipSync{
			UnauthorizedMembers:   []MemberRef{},
			MissingCouncilMembers: []MemberRef{},
			DesyncedRoles:         []RoleDrift{},
		},
	}
}

// TotalDiscrepancies counts every finding in the report.
func (r *Report) TotalDiscrepancies() int {
	return len(r.Registry.Ownerless) +
		len(r.Registry.Voterless) +
		len(r.Registry.DuplicateRepresentatives) +
		len(r.Registry.WrongVoter) +
		len(r.Registry.DuplicateVoters) +
		len(r.Registry.InvalidInvites) +
		len(r.Sync.UnauthorizedMembers) +
		len(r.Sync.MissingCouncilMembers) +
		len(r.Sync.DesyncedRoles)
}
