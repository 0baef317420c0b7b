// Package handler exposes binding mutations over HTTP. Routes here are
// mounted behind authentication; bindings decide which directory roles the
// audit manages, so mutating them is a privileged operation.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/binding"
	"rollcall/internal/registry"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// Service defines the binding mutations the handler fronts.
type Service interface {
	BindGuild(ctx context.Context, guildID, roleID string) (*binding.Binding, error)
	BindPosition(ctx context.Context, position registry.Position, roleID string) (*binding.Binding, error)
	UnbindGuild(ctx context.Context, guildID string) error
	UnbindPosition(ctx context.Context, position registry.Position) error
}

// Handler wires binding endpoints to the mutation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a binding handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts binding endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bindings/guild", h.HandleBindGuild)
	r.Post("/bindings/position", h.HandleBindPosition)
}

// HandleBindGuild handles POST /bindings/guild requests.
func (h *Handler) HandleBindGuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BindGuildRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if req.RoleID == "" {
		if err := h.service.UnbindGuild(ctx, req.GuildID); err != nil {
			h.writeMutationError(w, r, err)
			return
		}
		h.logger.InfoContext(ctx, "guild binding cleared",
			"request_id", requestID,
			"actor", requestcontext.Actor(ctx),
			"guild_id", req.GuildID,
		)
		httputil.WriteJSON(w, http.StatusOK, BindResponse{Bound: false})
		return
	}

	prev, err := h.service.BindGuild(ctx, req.GuildID, req.RoleID)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "guild binding applied",
		"request_id", requestID,
		"actor", requestcontext.Actor(ctx),
		"guild_id", req.GuildID,
		"role_id", req.RoleID,
	)
	httputil.WriteJSON(w, http.StatusOK, BindResponse{Bound: true, Previous: prev})
}

// HandleBindPosition handles POST /bindings/position requests.
func (h *Handler) HandleBindPosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BindPositionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	position := registry.Position(req.Position)

	if req.RoleID == "" {
		if err := h.service.UnbindPosition(ctx, position); err != nil {
			h.writeMutationError(w, r, err)
			return
		}
		h.logger.InfoContext(ctx, "position binding cleared",
			"request_id", requestID,
			"actor", requestcontext.Actor(ctx),
			"position", req.Position,
		)
		httputil.WriteJSON(w, http.StatusOK, BindResponse{Bound: false})
		return
	}

	prev, err := h.service.BindPosition(ctx, position, req.RoleID)
	if err != nil {
		h.writeMutationError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "position binding applied",
		"request_id", requestID,
		"actor", requestcontext.Actor(ctx),
		"position", req.Position,
		"role_id", req.RoleID,
	)
	httputil.WriteJSON(w, http.StatusOK, BindResponse{Bound: true, Previous: prev})
}

// writeMutationError maps binding policy errors to HTTP responses. The 409
// carries the conflicting binding so callers can show what is in the way.
func (h *Handler) writeMutationError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var boundErr *binding.RoleAlreadyBoundError
	switch {
	case errors.As(err, &boundErr):
		httputil.WriteJSON(w, http.StatusConflict, ConflictResponse{
			Error:            string(dErrors.CodeConflict),
			ErrorDescription: boundErr.Error(),
			Conflict:         boundErr.Conflict,
			GuildName:        boundErr.GuildName,
		})
	case errors.Is(err, binding.ErrInvalidGuild):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "guild is not present in the registry"))
	case errors.Is(err, sentinel.ErrUnavailable):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "registry unavailable"))
	default:
		h.logger.ErrorContext(ctx, "binding mutation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
	}
}
