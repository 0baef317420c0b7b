// Package handler exposes the audit engine over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/audit"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/sentinel"
	"rollcall/pkg/requestcontext"
)

// Runner defines the audit operation the handler fronts.
type Runner interface {
	Run(ctx context.Context) (*audit.Report, error)
}

// Handler wires the audit endpoint to the engine.
type Handler struct {
	runner Runner
	logger *slog.Logger
}

// New constructs an audit handler.
func New(runner Runner, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/audit", h.HandleRun)
}

// HandleRun handles POST /audit requests. An audit is a read-only
// computation; POST reflects that each invocation is a distinct run with its
// own id.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	report, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit run failed",
			"request_id", requestID,
			"error", err,
		)
		if errors.Is(err, sentinel.ErrUnavailable) {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "upstream snapshot unavailable"))
			return
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "audit run served",
		"request_id", requestID,
		"actor", requestcontext.Actor(ctx),
		"run_id", report.RunID,
		"discrepancies", report.TotalDiscrepancies(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}
