package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/registry"
	"rollcall/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) TestGuildBindingLifecycle() {
	s.Run("upsert and lookup", func() {
		s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g1", "role-a"))

		found, err := s.store.GetGuildBinding(s.ctx, "g1")
		s.Require().NoError(err)
		s.Equal("role-a", found.RoleID)
		s.Equal(KindGuild, found.Kind)
	})

	s.Run("upsert replaces prior role under same key", func() {
		s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g1", "role-a"))
		s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g1", "role-b"))

		found, err := s.store.GetGuildBinding(s.ctx, "g1")
		s.Require().NoError(err)
		s.Equal("role-b", found.RoleID)
	})

	s.Run("delete then lookup returns ErrNotFound", func() {
		s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g1", "role-a"))
		s.Require().NoError(s.store.DeleteGuildBinding(s.ctx, "g1"))

		_, err := s.store.GetGuildBinding(s.ctx, "g1")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete of absent key is a no-op", func() {
		s.Require().NoError(s.store.DeleteGuildBinding(s.ctx, "never-bound"))
	})
}

func (s *InMemoryStoreSuite) TestFindByRoleSpansBothCollections() {
	s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g1", "role-a"))
	s.Require().NoError(s.store.UpsertPositionBinding(s.ctx, registry.PositionVoter, "role-b"))

	guildHit, err := s.store.FindByRole(s.ctx, "role-a")
	s.Require().NoError(err)
	s.Equal(KindGuild, guildHit.Kind)
	s.Equal("g1", guildHit.Key)

	positionHit, err := s.store.FindByRole(s.ctx, "role-b")
	s.Require().NoError(err)
	s.Equal(KindPosition, positionHit.Kind)
	s.Equal(string(registry.PositionVoter), positionHit.Key)

	_, err = s.store.FindByRole(s.ctx, "role-c")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListAllIsDeterministic() {
	s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g2", "role-2"))
	s.Require().NoError(s.store.UpsertGuildBinding(s.ctx, "g1", "role-1"))
	s.Require().NoError(s.store.UpsertPositionBinding(s.ctx, registry.PositionOwner, "role-3"))

	bindings, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(bindings, 3)
	s.Equal(GuildBinding("g1", "role-1"), bindings[0])
	s.Equal(GuildBinding("g2", "role-2"), bindings[1])
	s.Equal(PositionBinding(registry.PositionOwner, "role-3"), bindings[2])
}
