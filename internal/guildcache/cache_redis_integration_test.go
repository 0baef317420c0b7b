//go:build integration

package guildcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/guildcache"
	"rollcall/internal/registry"
	"rollcall/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	registry *registry.Fake
	cache    *guildcache.Redis
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.registry = registry.NewFake()
	s.registry.PutGuild(registry.Guild{
		ID: "g1", Name: "Azure Harbor", CategoryTag: "standard",
		OwnerID: "u1", VoterID: "u1", InviteRef: "inv-1",
	})
	s.cache = guildcache.NewRedis(s.redis.Client, s.registry, time.Minute)
}

func (s *RedisCacheSuite) TestSnapshotSharedAcrossInstances() {
	ctx := context.Background()

	guilds, err := s.cache.Guilds(ctx)
	s.Require().NoError(err)
	s.Require().Len(guilds, 1)

	// A second instance over a failing registry still reads the snapshot.
	broken := registry.NewFake()
	broken.FailAll = true
	other := guildcache.NewRedis(s.redis.Client, broken, time.Minute)

	guilds, err = other.Guilds(ctx)
	s.Require().NoError(err)
	s.Len(guilds, 1)
}

func (s *RedisCacheSuite) TestRefreshOverwritesSnapshot() {
	ctx := context.Background()

	_, err := s.cache.Guilds(ctx)
	s.Require().NoError(err)

	s.registry.PutGuild(registry.Guild{
		ID: "g2", Name: "Bramble Keep", CategoryTag: "standard",
		OwnerID: "u2", VoterID: "u2", InviteRef: "inv-2",
	})
	s.Require().NoError(s.cache.Refresh(ctx))

	guilds, err := s.cache.Guilds(ctx)
	s.Require().NoError(err)
	s.Len(guilds, 2)
}

func (s *RedisCacheSuite) TestSearchReadsSnapshot() {
	ctx := context.Background()

	got, err := s.cache.Search(ctx, "harbor", 0)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("g1", got[0].ID)
}

func (s *RedisCacheSuite) TestOutageWithEmptyCacheErrors() {
	broken := registry.NewFake()
	broken.FailAll = true
	cache := guildcache.NewRedis(s.redis.Client, broken, time.Minute)

	_, err := cache.Guilds(context.Background())
	s.Error(err)
}
