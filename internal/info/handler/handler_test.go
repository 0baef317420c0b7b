package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/directory"
	"rollcall/internal/guildcache"
	"rollcall/internal/info"
	"rollcall/internal/platform/logger"
	"rollcall/internal/registry"
	"rollcall/pkg/testutil"
)

func newTestRouter(t *testing.T) (chi.Router, *registry.Fake) {
	t.Helper()
	reg := registry.NewFake()
	dir := directory.NewFake()

	reg.PutUser(registry.User{ID: "u1", PositionTags: []registry.Position{registry.PositionOwner}})
	reg.PutUser(registry.User{ID: "u2", PositionTags: []registry.Position{registry.PositionObserver}})
	reg.PutGuild(registry.Guild{
		ID: "g1", Name: "Azure Harbor", CategoryTag: "standard",
		OwnerID: "u1", VoterID: "u1", InviteRef: "inv-1",
	})
	dir.PutMember(directory.Member{ID: "u1", DisplayName: "Captain"})

	cache := guildcache.NewMemory(reg, time.Minute)
	service := info.NewService(reg, dir, cache, logger.New())

	r := chi.NewRouter()
	New(service, logger.New()).Register(r)
	return r, reg
}

func TestHandleUserInfo(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/info/users/u1")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, resp, http.StatusOK)
	body := testutil.UnmarshalResponse[info.UserInfo](t, resp)
	assert.Equal(t, "Captain", body.User.DisplayName)
	require.Len(t, body.Guilds, 1)
	assert.Equal(t, "g1", body.Guilds[0].GuildID)
}

func TestHandleUserInfoNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/info/users/ghost")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, resp, http.StatusNotFound, "not_found")
}

func TestHandleGuildInfo(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/info/guilds/g1")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, resp, http.StatusOK)
	body := testutil.UnmarshalResponse[info.GuildInfo](t, resp)
	assert.Equal(t, "Azure Harbor", body.Guild.Name)
	require.NotNil(t, body.Owner)
	assert.Equal(t, "Captain", body.Owner.DisplayName)
}

func TestHandleGuildInfoNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/info/guilds/ghost")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, resp, http.StatusNotFound, "not_found")
}

func TestHandleObservers(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/info/observers")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, resp, http.StatusOK)
	body := testutil.UnmarshalResponse[map[string][]info.PersonRef](t, resp)
	require.Len(t, (*body)["observers"], 1)
	assert.Equal(t, "u2", (*body)["observers"][0].ID)
}

func TestHandleSearchGuilds(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/guilds/search?q=harbor")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, resp, http.StatusOK)
	body := testutil.UnmarshalResponse[map[string][]registry.Guild](t, resp)
	require.Len(t, (*body)["guilds"], 1)
	assert.Equal(t, "g1", (*body)["guilds"][0].ID)
}

func TestHandleSearchGuildsBadLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/guilds/search?q=harbor&limit=nope")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, resp, http.StatusBadRequest, "bad_request")
}

func TestHandleUserInfoRegistryOutage(t *testing.T) {
	router, reg := newTestRouter(t)
	reg.FailAll = true

	req := testutil.NewRequest(t, http.MethodGet, "/info/users/u1")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, resp, http.StatusServiceUnavailable, "unavailable")
}
