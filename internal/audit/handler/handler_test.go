package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/audit"
	"rollcall/internal/binding"
	"rollcall/internal/directory"
	"rollcall/internal/platform/logger"
	"rollcall/internal/registry"
	"rollcall/pkg/testutil"
)

func newTestRouter(t *testing.T, reg *registry.Fake, dir *directory.Fake) chi.Router {
	t.Helper()
	engine := audit.NewEngine(reg, dir, binding.NewInMemory())
	r := chi.NewRouter()
	New(engine, logger.New()).Register(r)
	return r
}

func TestHandleRun(t *testing.T) {
	reg := registry.NewFake()
	dir := directory.NewFake()
	reg.PutGuild(registry.Guild{ID: "g1", Name: "Abandoned", CategoryTag: "standard"})
	router := newTestRouter(t, reg, dir)

	req := testutil.NewRequest(t, http.MethodPost, "/audit")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatus(t, resp, http.StatusOK)
	report := testutil.UnmarshalResponse[audit.Report](t, resp)
	require.Len(t, report.Registry.Ownerless, 1)
	assert.Equal(t, "g1", report.Registry.Ownerless[0].ID)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Stats.Guilds)
}

func TestHandleRunRegistryOutage(t *testing.T) {
	reg := registry.NewFake()
	reg.FailAll = true
	router := newTestRouter(t, reg, directory.NewFake())

	req := testutil.NewRequest(t, http.MethodPost, "/audit")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, resp, http.StatusServiceUnavailable, "unavailable")
}

func TestHandleRunDirectoryOutage(t *testing.T) {
	dir := directory.NewFake()
	dir.FailList = true
	router := newTestRouter(t, registry.NewFake(), dir)

	req := testutil.NewRequest(t, http.MethodPost, "/audit")
	resp := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, resp, http.StatusServiceUnavailable, "unavailable")
}

type failingRunner struct{}

func (failingRunner) Run(context.Context) (*audit.Report, error) {
	return nil, context.DeadlineExceeded
}

func TestHandleRunUnknownErrorIsInternal(t *testing.T) {
	r := chi.NewRouter()
	New(failingRunner{}, logger.New()).Register(r)

	req := testutil.NewRequest(t, http.MethodPost, "/audit")
	resp := testutil.DoRequest(r, req)

	testutil.AssertStatus(t, resp, http.StatusInternalServerError)
}
