//go:build integration

package binding_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"rollcall/internal/binding"
	"rollcall/internal/registry"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *binding.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.ApplySchema(context.Background(), binding.Schema))
	s.store = binding.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "guild_bindings", "position_bindings")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestGuildBindingLifecycle() {
	ctx := context.Background()

	s.Require().NoError(s.store.UpsertGuildBinding(ctx, "g1", "role-a"))

	got, err := s.store.GetGuildBinding(ctx, "g1")
	s.Require().NoError(err)
	s.Equal("role-a", got.RoleID)
	s.Equal(binding.KindGuild, got.Kind)

	s.Require().NoError(s.store.UpsertGuildBinding(ctx, "g1", "role-b"))
	got, err = s.store.GetGuildBinding(ctx, "g1")
	s.Require().NoError(err)
	s.Equal("role-b", got.RoleID)

	s.Require().NoError(s.store.DeleteGuildBinding(ctx, "g1"))
	_, err = s.store.GetGuildBinding(ctx, "g1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByRoleSpansBothTables() {
	ctx := context.Background()

	s.Require().NoError(s.store.UpsertGuildBinding(ctx, "g1", "role-a"))
	s.Require().NoError(s.store.UpsertPositionBinding(ctx, registry.PositionObserver, "role-b"))

	got, err := s.store.FindByRole(ctx, "role-a")
	s.Require().NoError(err)
	s.Equal(binding.KindGuild, got.Kind)
	s.Equal("g1", got.Key)

	got, err = s.store.FindByRole(ctx, "role-b")
	s.Require().NoError(err)
	s.Equal(binding.KindPosition, got.Kind)
	s.Equal("observer", got.Key)

	_, err = s.store.FindByRole(ctx, "role-free")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListAllDeterministicOrder() {
	ctx := context.Background()

	s.Require().NoError(s.store.UpsertPositionBinding(ctx, registry.PositionOwner, "role-1"))
	s.Require().NoError(s.store.UpsertGuildBinding(ctx, "g2", "role-2"))
	s.Require().NoError(s.store.UpsertGuildBinding(ctx, "g1", "role-3"))

	bindings, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(bindings, 3)
	s.Equal("g1", bindings[0].Key)
	s.Equal("g2", bindings[1].Key)
	s.Equal("owner", bindings[2].Key)
}

func (s *PostgresStoreSuite) TestDeleteIsIdempotent() {
	ctx := context.Background()
	s.NoError(s.store.DeleteGuildBinding(ctx, "never-bound"))
	s.NoError(s.store.DeletePositionBinding(ctx, registry.PositionVoter))
}

// TestConcurrentUpsertsSameGuild verifies last-write-wins without errors under
// concurrent upserts to one key.
func (s *PostgresStoreSuite) TestConcurrentUpsertsSameGuild() {
	ctx := context.Background()
	const goroutines = 50

	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.UpsertGuildBinding(ctx, "g1", "role-"+uuid.NewString()); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())

	got, err := s.store.GetGuildBinding(ctx, "g1")
	s.Require().NoError(err)
	s.NotEmpty(got.RoleID)

	bindings, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Len(bindings, 1)
}

// TestServiceUniquenessUnderConcurrency runs the mutation policy against the
// real store: concurrent binds of one role to different guilds must yield
// exactly one binding holding that role.
func (s *PostgresStoreSuite) TestServiceUniquenessUnderConcurrency() {
	ctx := context.Background()
	const goroutines = 20

	reg := registry.NewFake()
	for i := 0; i < goroutines; i++ {
		id := "g" + uuid.NewString()
		reg.PutGuild(registry.Guild{
			ID: id, Name: "Guild " + id, CategoryTag: "standard",
			OwnerID: "u1", VoterID: "u1", InviteRef: "inv",
		})
	}
	guilds, err := reg.ListGuilds(ctx)
	s.Require().NoError(err)

	service := binding.NewService(s.store, reg)

	var wg sync.WaitGroup
	var successes, conflicts atomic.Int32
	for _, guild := range guilds {
		guild := guild
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.BindGuild(ctx, guild.ID, "contested-role")
			var boundErr *binding.RoleAlreadyBoundError
			switch {
			case err == nil:
				successes.Add(1)
			case errors.As(err, &boundErr):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load(), "exactly one bind should win")
	s.Equal(int32(goroutines-1), conflicts.Load(), "all others should conflict")

	got, err := s.store.FindByRole(ctx, "contested-role")
	s.Require().NoError(err)
	s.Equal(binding.KindGuild, got.Kind)
}
