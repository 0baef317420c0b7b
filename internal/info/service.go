// Package info answers lookup queries about registry users and guilds,
// enriched with directory display names where they resolve.
package info

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"rollcall/internal/directory"
	"rollcall/internal/guildcache"
	"rollcall/internal/registry"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/sentinel"
	strs "rollcall/pkg/platform/strings"
)

// PersonRef pairs a registry user id with its directory display name when
// one resolves.
type PersonRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// GuildStake records the council roles a user holds on one guild.
type GuildStake struct {
	GuildID   string   `json:"guild_id"`
	GuildName string   `json:"guild_name"`
	Roles     []string `json:"roles"`
}

// UserInfo is the full lookup result for one registry user. PositionConflict
// is set when the user's position tags disagree with the guild records, in
// either direction.
type UserInfo struct {
	User             PersonRef    `json:"user"`
	Positions        []string     `json:"positions"`
	Guilds           []GuildStake `json:"guilds"`
	InDirectory      bool         `json:"in_directory"`
	PositionConflict bool         `json:"position_conflict"`
}

// GuildInfo is the full lookup result for one registry guild.
type GuildInfo struct {
	Guild   registry.Guild `json:"guild"`
	Owner   *PersonRef     `json:"owner,omitempty"`
	Advisor *PersonRef     `json:"advisor,omitempty"`
	Voter   *PersonRef     `json:"voter,omitempty"`
}

// Service resolves info queries. Directory lookups are best-effort: a person
// that does not resolve keeps their id with no display name.
type Service struct {
	registry  registry.Client
	directory directory.Client
	guilds    guildcache.Cache
	logger    *slog.Logger
}

// NewService builds an info service over the given collaborators.
func NewService(reg registry.Client, dir directory.Client, guilds guildcache.Cache, logger *slog.Logger) *Service {
	return &Service{
		registry:  reg,
		directory: dir,
		guilds:    guilds,
		logger:    logger,
	}
}

// UserInfo looks up one registry user and the guilds they hold council roles
// on.
func (s *Service) UserInfo(ctx context.Context, userID string) (*UserInfo, error) {
	users, err := s.registry.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry users: %w", err)
	}
	var user *registry.User
	for i := range users {
		if users[i].ID == userID {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "user is not present in the registry")
	}

	guilds, err := s.guilds.Guilds(ctx)
	if err != nil {
		return nil, err
	}

	info := &UserInfo{
		User:      s.personRef(ctx, userID),
		Positions: positionNames(user.PositionTags),
		Guilds:    []GuildStake{},
	}
	if _, err := s.directory.GetUser(ctx, userID); err == nil {
		info.InDirectory = true
	}

	var ownsGuild, advisesGuild bool
	for _, guild := range guilds {
		var roles []string
		if guild.OwnerID == userID {
			ownsGuild = true
			roles = append(roles, string(registry.PositionOwner))
		}
		if guild.AdvisorID == userID {
			advisesGuild = true
			roles = append(roles, string(registry.PositionAdvisor))
		}
		if guild.VoterID == userID {
			roles = append(roles, string(registry.PositionVoter))
		}
		if len(roles) > 0 {
			info.Guilds = append(info.Guilds, GuildStake{
				GuildID:   guild.ID,
				GuildName: guild.Name,
				Roles:     roles,
			})
		}
	}
	sort.Slice(info.Guilds, func(i, j int) bool {
		return info.Guilds[i].GuildName < info.Guilds[j].GuildName
	})
	info.PositionConflict = user.HasTag(registry.PositionOwner) != ownsGuild ||
		user.HasTag(registry.PositionAdvisor) != advisesGuild
	return info, nil
}

// GuildInfo looks up one registry guild with its council seats resolved.
func (s *Service) GuildInfo(ctx context.Context, guildID string) (*GuildInfo, error) {
	guild, err := s.registry.GetGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "guild is not present in the registry")
		}
		return nil, fmt.Errorf("resolve guild %s: %w", guildID, err)
	}

	info := &GuildInfo{Guild: *guild}
	if guild.OwnerID != "" {
		ref := s.personRef(ctx, guild.OwnerID)
		info.Owner = &ref
	}
	if guild.AdvisorID != "" {
		ref := s.personRef(ctx, guild.AdvisorID)
		info.Advisor = &ref
	}
	if guild.VoterID != "" {
		ref := s.personRef(ctx, guild.VoterID)
		info.Voter = &ref
	}
	return info, nil
}

// Observers lists all observer-tagged registry users in id order.
func (s *Service) Observers(ctx context.Context) ([]PersonRef, error) {
	users, err := s.registry.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry users: %w", err)
	}
	observers := []PersonRef{}
	for _, user := range users {
		if user.HasTag(registry.PositionObserver) {
			observers = append(observers, s.personRef(ctx, user.ID))
		}
	}
	sort.Slice(observers, func(i, j int) bool { return observers[i].ID < observers[j].ID })
	return observers, nil
}

// SearchGuilds matches guilds from the cached snapshot for autocomplete.
func (s *Service) SearchGuilds(ctx context.Context, query string, limit int) ([]registry.Guild, error) {
	return s.guilds.Search(ctx, query, limit)
}

func (s *Service) personRef(ctx context.Context, id string) PersonRef {
	ref := PersonRef{ID: id}
	user, err := s.directory.GetUser(ctx, id)
	if err != nil {
		s.logger.DebugContext(ctx, "display name unresolved", "user_id", id, "error", err)
		return ref
	}
	ref.DisplayName = user.DisplayName
	return ref
}

func positionNames(tags []registry.Position) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, string(tag))
	}
	names = strs.DedupeAndTrim(names)
	sort.Strings(names)
	return names
}
