package info

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"rollcall/internal/directory"
	"rollcall/internal/guildcache"
	"rollcall/internal/platform/logger"
	"rollcall/internal/registry"
	dErrors "rollcall/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	registry  *registry.Fake
	directory *directory.Fake
	service   *Service
}

func (s *ServiceSuite) SetupTest() {
	s.registry = registry.NewFake()
	s.directory = directory.NewFake()
	cache := guildcache.NewMemory(s.registry, time.Minute)
	s.service = NewService(s.registry, s.directory, cache, logger.New())

	s.registry.PutUser(registry.User{ID: "u1", PositionTags: []registry.Position{registry.PositionOwner, registry.PositionVoter}})
	s.registry.PutUser(registry.User{ID: "u2", PositionTags: []registry.Position{registry.PositionObserver}})
	s.registry.PutGuild(registry.Guild{
		ID: "g1", Name: "Azure Harbor", CategoryTag: "standard",
		OwnerID: "u1", VoterID: "u1", InviteRef: "inv-1",
	})
	s.directory.PutMember(directory.Member{ID: "u1", DisplayName: "Captain"})
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestUserInfo() {
	info, err := s.service.UserInfo(context.Background(), "u1")
	s.Require().NoError(err)

	s.Equal("Captain", info.User.DisplayName)
	s.Equal([]string{"owner", "voter"}, info.Positions)
	s.True(info.InDirectory)
	s.Require().Len(info.Guilds, 1)
	s.Equal("Azure Harbor", info.Guilds[0].GuildName)
	s.Equal([]string{"owner", "voter"}, info.Guilds[0].Roles)
	s.False(info.PositionConflict)
}

func (s *ServiceSuite) TestUserInfoPositionConflict() {
	// Tagged as owner but owns no guild.
	s.registry.PutUser(registry.User{ID: "u3", PositionTags: []registry.Position{registry.PositionOwner}})

	info, err := s.service.UserInfo(context.Background(), "u3")
	s.Require().NoError(err)
	s.True(info.PositionConflict)

	// Advises a guild without carrying the advisor tag.
	s.registry.PutUser(registry.User{ID: "u4"})
	s.registry.PutGuild(registry.Guild{
		ID: "g2", Name: "Stone Gate", CategoryTag: "standard",
		OwnerID: "u1", AdvisorID: "u4", InviteRef: "inv-2",
	})
	s.Require().NoError(s.service.guilds.Refresh(context.Background()))

	info, err = s.service.UserInfo(context.Background(), "u4")
	s.Require().NoError(err)
	s.True(info.PositionConflict)
}

func (s *ServiceSuite) TestUserInfoOutsideDirectory() {
	info, err := s.service.UserInfo(context.Background(), "u2")
	s.Require().NoError(err)

	s.False(info.InDirectory)
	s.Empty(info.User.DisplayName)
	s.Empty(info.Guilds)
}

func (s *ServiceSuite) TestUserInfoUnknownUser() {
	_, err := s.service.UserInfo(context.Background(), "ghost")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGuildInfo() {
	info, err := s.service.GuildInfo(context.Background(), "g1")
	s.Require().NoError(err)

	s.Equal("Azure Harbor", info.Guild.Name)
	s.Require().NotNil(info.Owner)
	s.Equal("Captain", info.Owner.DisplayName)
	s.Nil(info.Advisor)
	s.Require().NotNil(info.Voter)
	s.Equal("u1", info.Voter.ID)
}

func (s *ServiceSuite) TestGuildInfoUnknownGuild() {
	_, err := s.service.GuildInfo(context.Background(), "ghost")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestObservers() {
	observers, err := s.service.Observers(context.Background())
	s.Require().NoError(err)

	s.Require().Len(observers, 1)
	s.Equal("u2", observers[0].ID)
}

func (s *ServiceSuite) TestSearchGuilds() {
	guilds, err := s.service.SearchGuilds(context.Background(), "harbor", 0)
	s.Require().NoError(err)

	s.Require().Len(guilds, 1)
	s.Equal("g1", guilds[0].ID)
}

func (s *ServiceSuite) TestUserInfoRegistryOutage() {
	s.registry.FailAll = true

	_, err := s.service.UserInfo(context.Background(), "u1")
	s.Error(err)
}
