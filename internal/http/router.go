// Package httpapi assembles the HTTP surface: middleware stack, public info
// endpoints, and authenticated audit runs and binding mutations.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/middleware"
	"rollcall/pkg/platform/httputil"
)

// Registrar mounts a feature's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// Dependencies carries everything the router needs. Health checks are
// optional; a nil check is skipped.
type Dependencies struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TokenValidator middleware.TokenValidator

	Audit    Registrar
	Info     Registrar
	Bindings Registrar

	HealthChecks map[string]func(ctx context.Context) error
}

// NewRouter wires the middleware stack and all endpoints.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(60 * time.Second))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", handleHealth(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public read surface.
	r.Group(func(r chi.Router) {
		deps.Info.Register(r)
	})

	// Audit runs and binding mutations require a valid bearer token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenValidator, deps.Logger))
		r.Use(middleware.ContentTypeJSON)
		deps.Audit.Register(r)
		deps.Bindings.Register(r)
	})

	return r
}

func handleHealth(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
