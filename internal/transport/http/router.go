// Package httptransport assembles the public HTTP surface: middleware, health
// probes, metrics, and the screening routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benefind/pkg/platform/httputil"
	"benefind/pkg/platform/middleware/auth"
	"benefind/pkg/platform/middleware/metadata"
	"benefind/pkg/platform/middleware/requesttime"
)

// Check reports whether a backing dependency is reachable.
type Check func(ctx context.Context) error

// Routes is anything that mounts its endpoints on a chi router.
type Routes interface {
	Register(r chi.Router)
}

// Config holds everything the router needs.
type Config struct {
	Logger     *slog.Logger
	Validator  auth.JWTValidator
	Gatherer   prometheus.Gatherer
	Checks     map[string]Check
	CheckLimit time.Duration
	Version    func() string
}

type healthResponse struct {
	Status         string            `json:"status"`
	CatalogVersion string            `json:"catalog_version,omitempty"`
	Checks         map[string]string `json:"checks,omitempty"`
}

// NewRouter wires middleware and mounts the given route groups.
func NewRouter(cfg Config, routes ...Routes) http.Handler {
	if cfg.CheckLimit <= 0 {
		cfg.CheckLimit = 2 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metadata.RequestID)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
	r.Get("/readyz", readiness(cfg))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.ResolveOwner(cfg.Validator, cfg.Logger))
		for _, rt := range routes {
			rt.Register(r)
		}
	})
	return r
}

func readiness(cfg Config) http.HandlerFunc {
	names := make([]string, 0, len(cfg.Checks))
	for name := range cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.CheckLimit)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		if cfg.Version != nil {
			resp.CatalogVersion = cfg.Version()
		}
		status := http.StatusOK
		for _, name := range names {
			if err := cfg.Checks[name](ctx); err != nil {
				cfg.Logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
