// Package handler exposes info lookups over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/info"
	"rollcall/internal/registry"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// Service defines the lookup operations the handler fronts.
type Service interface {
	UserInfo(ctx context.Context, userID string) (*info.UserInfo, error)
	GuildInfo(ctx context.Context, guildID string) (*info.GuildInfo, error)
	Observers(ctx context.Context) ([]info.PersonRef, error)
	SearchGuilds(ctx context.Context, query string, limit int) ([]registry.Guild, error)
}

// Handler wires info endpoints to the lookup service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an info handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts info endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/info/users/{userID}", h.HandleUserInfo)
	r.Get("/info/guilds/{guildID}", h.HandleGuildInfo)
	r.Get("/info/observers", h.HandleObservers)
	r.Get("/guilds/search", h.HandleSearchGuilds)
}

// HandleUserInfo handles GET /info/users/{userID} requests.
func (h *Handler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	result, err := h.service.UserInfo(ctx, userID)
	if err != nil {
		h.writeLookupError(w, ctx, "user info lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleGuildInfo handles GET /info/guilds/{guildID} requests.
func (h *Handler) HandleGuildInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	result, err := h.service.GuildInfo(ctx, guildID)
	if err != nil {
		h.writeLookupError(w, ctx, "guild info lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleObservers handles GET /info/observers requests.
func (h *Handler) HandleObservers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	observers, err := h.service.Observers(ctx)
	if err != nil {
		h.writeLookupError(w, ctx, "observer lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]info.PersonRef{"observers": observers})
}

// HandleSearchGuilds handles GET /guilds/search?q=&limit= requests.
func (h *Handler) HandleSearchGuilds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	guilds, err := h.service.SearchGuilds(ctx, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeLookupError(w, ctx, "guild search failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]registry.Guild{"guilds": guilds})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, ctx context.Context, msg string, err error) {
	if errors.Is(err, sentinel.ErrUnavailable) {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "registry unavailable"))
		return
	}
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
