package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/copycats/copycat-api/internal/config"
	"github.com/copycats/copycat-api/internal/generator"
	"github.com/copycats/copycat-api/internal/logging"
	httperrors "github.com/copycats/copycat-api/pkg/http/errors"
)

const pingTimeout = 5 * time.Second

// Dependency is a backend /v1/ping checks.
type Dependency struct {
	Name string
	Ping func(ctx context.Context) error
}

// Routes groups the handlers mounted by NewHTTPServer. Generator and Admin
// may be nil.
type Routes struct {
	Questions    http.Handler
	Generator    *generator.HTTPHandler
	Admin        *AdminHandler
	RequireAdmin func(http.Handler) http.Handler
	Dependencies []Dependency
}

// NewHTTPServer wires the question actions, LLM endpoints, admin endpoints,
// health checks and metrics.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, routes Routes) *http.Server {
	mux := http.NewServeMux()
	requireAdmin := routes.RequireAdmin
	if requireAdmin == nil {
		requireAdmin = func(next http.Handler) http.Handler { return next }
	}

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, withCORS(cfg.CORS, withRequestLogging(logger, pattern, h)))
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	handle("/v1/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), routes.Dependencies); err != nil {
			reqLogger := logging.FromContext(r.Context())
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondBadGateway(w, "upstream error")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]bool{"pong": true})
	}))

	handle("/.netlify/functions/airtable", routes.Questions)
	handle("/v1/airtable", routes.Questions)

	if g := routes.Generator; g != nil {
		for _, prefix := range []string{"", "/v1"} {
			handle(prefix+"/generate-clone", requireAdmin(http.HandlerFunc(g.HandleGenerateClone)))
			handle(prefix+"/get-hint", http.HandlerFunc(g.HandleHint))
			handle(prefix+"/get-hints", http.HandlerFunc(g.HandleHints))
			handle(prefix+"/get-explanation", http.HandlerFunc(g.HandleExplanation))
		}
	}

	if a := routes.Admin; a != nil {
		handle("/v1/admin/cleanup-explanations", requireAdmin(http.HandlerFunc(a.HandleCleanupExplanations)))
		handle("/v1/admin/generations", requireAdmin(http.HandlerFunc(a.HandleGenerations)))
	}

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func pingDependencies(ctx context.Context, deps []Dependency) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	for _, dep := range deps {
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", dep.Name, err)
		}
	}
	return nil
}
