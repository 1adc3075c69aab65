// Package httpapi is the chi-based REST binding of the token-gated
// management and geo surfaces described by the core (internal/core):
// it is the thin transport wrapping an already-complete in-process
// API, not the external load-driver this system is benchmarked by.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/geomesh/proximity/internal/core"
	appmiddleware "github.com/geomesh/proximity/internal/middleware"
	"github.com/geomesh/proximity/internal/ratelimit"
)

// Server wires a core.World and optional rate limiter into an
// http.Handler.
type Server struct {
	World       *core.World
	RateLimiter *ratelimit.Limiter // nil disables rate limiting
	Snapshots   SnapshotStore      // nil disables /ops snapshot export
	OpsEnabled  bool
	// OriginVerifyKey, if set, gates every non-health, non-swagger
	// route behind the X-Origin-Verify header (see
	// internal/middleware.OriginVerify).
	OriginVerifyKey string
}

// Routes builds the full chi.Router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(appmiddleware.RequestID)
	r.Use(appmiddleware.RealIP)
	r.Use(appmiddleware.Recoverer)
	r.Use(appmiddleware.Logger)
	r.Use(appmiddleware.SecurityHeaders)
	r.Use(appmiddleware.OriginVerify(s.OriginVerifyKey))
	r.Use(appmiddleware.ContentType("application/json"))
	r.Use(appmiddleware.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/apps/{app}/points", s.handleCreatePoint)
		r.Delete("/apps/{app}/points/{point}", s.handleDeletePoint)
		r.Put("/apps/{app}/points/{point}/subjects", s.handleSetPointSubjects)
		r.Post("/apps/{app}/points/{point}/tokens/update", s.handleMintUpdateToken)
		r.Post("/apps/{app}/points/{point}/tokens/nearest", s.handleMintNearestToken)
		r.Post("/apps/{app}/points/{point}/tokens/coords", s.handleMintCoordsToken)

		r.Post("/call", s.handleCall)
	})

	if s.OpsEnabled {
		r.Route("/ops", func(r chi.Router) {
			r.Use(appmiddleware.RequireOperator)
			r.Get("/apps/{app}/snapshot", s.handleOpsSnapshot)
		})
	}

	return r
}

//	@Summary		Health check
//	@Tags			Health
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
