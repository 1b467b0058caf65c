package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/FasterSpeeding/PTF/internal/auth"
	"github.com/FasterSpeeding/PTF/internal/link"
	"github.com/FasterSpeeding/PTF/internal/message"
	"github.com/FasterSpeeding/PTF/internal/observability"
	"github.com/FasterSpeeding/PTF/jobs"
)

func newBaseRouter(logger *slog.Logger, cfg *Config, metrics *observability.Metrics) chi.Router {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: logger, Config: cfg, Metrics: metrics}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return r
}

// AuthorityRouterParams groups dependencies for the authority service
// router.
type AuthorityRouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	AuthHandler *auth.Handler
	LinkHandler *link.Handler
	JobHandler  *jobs.Handler
	Metrics     *observability.Metrics
}

// NewAuthorityRouter constructs the authority service's chi router.
func NewAuthorityRouter(params AuthorityRouterParams) http.Handler {
	r := newBaseRouter(params.Logger, params.Config, params.Metrics)
	params.AuthHandler.MountRoutes(r)
	params.LinkHandler.MountRoutes(r)
	if params.JobHandler != nil {
		r.Route("/jobs", func(jr chi.Router) {
			params.JobHandler.MountRoutes(jr)
		})
	}
	return r
}

// GatewayRouterParams groups dependencies for the relying service
// router.
type GatewayRouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	MessageHandler *message.Handler
	Metrics        *observability.Metrics
}

// NewGatewayRouter constructs the relying service's chi router.
func NewGatewayRouter(params GatewayRouterParams) http.Handler {
	r := newBaseRouter(params.Logger, params.Config, params.Metrics)
	params.MessageHandler.MountRoutes(r)
	return r
}
