// Package guildcache keeps a short-lived snapshot of registry guilds for
// search and autocomplete, so interactive lookups do not hit the registry on
// every keystroke.
package guildcache

import (
	"context"
	"sort"
	"strings"

	"rollcall/internal/registry"
)

// DefaultSearchLimit caps search results when the caller does not.
const DefaultSearchLimit = 25

// Cache provides read access to the guild snapshot.
//
// Guilds returns the snapshot, refreshing it from the registry when expired.
// Refresh forces a refetch regardless of freshness. Search matches the query
// case-insensitively against guild names and ids.
type Cache interface {
	Guilds(ctx context.Context) ([]registry.Guild, error)
	Refresh(ctx context.Context) error
	Search(ctx context.Context, query string, limit int) ([]registry.Guild, error)
}

// match filters guilds by a case-insensitive substring on name or id and
// returns at most limit results in name order. An empty query matches
// everything, which serves the initial autocomplete view.
func match(guilds []registry.Guild, query string, limit int) []registry.Guild {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]registry.Guild, 0, limit)
	for _, guild := range guilds {
		if query == "" ||
			strings.Contains(strings.ToLower(guild.Name), query) ||
			strings.Contains(strings.ToLower(guild.ID), query) {
			out = append(out, guild)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
