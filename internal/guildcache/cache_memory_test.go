package guildcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/registry"
)

func seededFake() *registry.Fake {
	fake := registry.NewFake()
	fake.PutGuild(registry.Guild{ID: "g1", Name: "Azure Harbor", CategoryTag: "standard", OwnerID: "u1", VoterID: "u1", InviteRef: "i1"})
	fake.PutGuild(registry.Guild{ID: "g2", Name: "Bramble Keep", CategoryTag: "standard", OwnerID: "u2", VoterID: "u2", InviteRef: "i2"})
	fake.PutGuild(registry.Guild{ID: "g3", Name: "Harbor Watch", CategoryTag: "standard", OwnerID: "u3", VoterID: "u3", InviteRef: "i3"})
	return fake
}

func TestMemoryServesFromSnapshotWithinTTL(t *testing.T) {
	ctx := context.Background()
	fake := seededFake()
	cache := NewMemory(fake, time.Minute)

	guilds, err := cache.Guilds(ctx)
	require.NoError(t, err)
	assert.Len(t, guilds, 3)

	// A registry outage inside the TTL window is invisible.
	fake.FailAll = true
	guilds, err = cache.Guilds(ctx)
	require.NoError(t, err)
	assert.Len(t, guilds, 3)
}

func TestMemoryRefetchesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	fake := seededFake()
	cache := NewMemory(fake, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Guilds(ctx)
	require.NoError(t, err)

	fake.PutGuild(registry.Guild{ID: "g4", Name: "New Arrival", CategoryTag: "standard", OwnerID: "u4", VoterID: "u4", InviteRef: "i4"})
	now = now.Add(2 * time.Minute)

	guilds, err := cache.Guilds(ctx)
	require.NoError(t, err)
	assert.Len(t, guilds, 4)
}

func TestMemoryServesStaleSnapshotOnOutage(t *testing.T) {
	ctx := context.Background()
	fake := seededFake()
	cache := NewMemory(fake, time.Minute)

	now := time.Now()
	cache.now = func() time.Time { return now }

	_, err := cache.Guilds(ctx)
	require.NoError(t, err)

	fake.FailAll = true
	now = now.Add(2 * time.Minute)

	guilds, err := cache.Guilds(ctx)
	require.NoError(t, err)
	assert.Len(t, guilds, 3)
}

func TestMemoryErrorsWithoutAnySnapshot(t *testing.T) {
	fake := seededFake()
	fake.FailAll = true
	cache := NewMemory(fake, time.Minute)

	_, err := cache.Guilds(context.Background())
	assert.Error(t, err)
}

func TestRefreshForcesRefetch(t *testing.T) {
	ctx := context.Background()
	fake := seededFake()
	cache := NewMemory(fake, time.Hour)

	_, err := cache.Guilds(ctx)
	require.NoError(t, err)

	fake.PutGuild(registry.Guild{ID: "g4", Name: "New Arrival", CategoryTag: "standard", OwnerID: "u4", VoterID: "u4", InviteRef: "i4"})
	require.NoError(t, cache.Refresh(ctx))

	guilds, err := cache.Guilds(ctx)
	require.NoError(t, err)
	assert.Len(t, guilds, 4)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory(seededFake(), time.Minute)

	t.Run("substring on name", func(t *testing.T) {
		got, err := cache.Search(ctx, "harbor", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Azure Harbor", got[0].Name)
		assert.Equal(t, "Harbor Watch", got[1].Name)
	})

	t.Run("match on id", func(t *testing.T) {
		got, err := cache.Search(ctx, "g2", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Bramble Keep", got[0].Name)
	})

	t.Run("empty query lists all up to limit", func(t *testing.T) {
		got, err := cache.Search(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := cache.Search(ctx, "nonexistent", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
