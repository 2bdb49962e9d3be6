// Package httpapi assembles the public HTTP surface: middleware chain, ledger
// routes, metrics and health probes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nameledger/internal/platform/metrics"
	"nameledger/internal/registry/handler"
	"nameledger/pkg/platform/httputil"
	authmw "nameledger/pkg/platform/middleware/auth"
	"nameledger/pkg/platform/middleware/metadata"
	request "nameledger/pkg/platform/middleware/request"
	"nameledger/pkg/platform/middleware/requesttime"
)

const readinessTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config carries everything the router needs. Zero values disable the
// optional pieces: no Gatherer means no /metrics, no Validator means bearer
// tokens are rejected.
type Config struct {
	Logger            *slog.Logger
	Handler           *handler.Handler
	Validator         authmw.JWTValidator
	DevIdentityHeader bool
	RequestTimeout    time.Duration
	HTTPMetrics       *metrics.Metrics
	Gatherer          prometheus.Gatherer
	Checks            map[string]HealthCheck
}

// NewRouter wires the middleware chain in front of the ledger routes.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(logger))
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}
	r.Use(metrics.LatencyMiddleware(cfg.HTTPMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.Authenticate(cfg.Validator, logger, authmw.WithDevHeader(cfg.DevIdentityHeader)))
		if cfg.Handler != nil {
			cfg.Handler.Register(r)
		}
	})
	return r
}

// readiness runs every check and answers 503 if any fails.
func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		httputil.WriteJSON(w, status, results)
	}
}
