package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/procurehub/procurehub/internal/auth"
	"github.com/procurehub/procurehub/internal/observability"
	"github.com/procurehub/procurehub/internal/platform/db"
	"github.com/procurehub/procurehub/internal/platform/httpx"
	"github.com/procurehub/procurehub/internal/procurement"
	"github.com/procurehub/procurehub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	DB                 db.Pinger
	AuthHandler        *auth.Handler
	ProcurementHandler *procurement.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	// AccessLog toggles chi's request logger.
	AccessLog bool
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.AccessLog {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"message": "Authentication API is running!"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/db/health", func(w http.ResponseWriter, r *http.Request) {
		if params.DB == nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "database not configured")
			return
		}
		if err := db.Ping(r.Context(), params.DB); err != nil {
			logger.Error("database health check", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "database connection failed")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
	})

	if params.AuthHandler != nil {
		params.AuthHandler.MountRoutes(r)
		if params.ProcurementHandler != nil {
			r.Route("/api", func(r chi.Router) {
				r.Use(params.AuthHandler.RequireUser)
				params.ProcurementHandler.MountRoutes(r)
			})
		}
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
