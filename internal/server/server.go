package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/kcalplanner/internal/planner"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc     *planner.Service
	log     *slog.Logger
	router  chi.Router
	metrics *metrics
	reg     *prometheus.Registry
	whois   WhoIsClient
}

// New creates a new Server with all routes configured.
func New(svc *planner.Service, log *slog.Logger) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		svc:     svc,
		log:     log,
		router:  chi.NewRouter(),
		metrics: newMetrics(reg),
		reg:     reg,
	}
	s.routes()
	return s
}

// SetTailscale enables caller identity lookups for requests arriving over
// the tailnet.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.whois = lc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(s.identity)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(s.metrics.instrument)
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Get("/presets", s.handlePresets)
		r.Get("/records", s.handleAllRecords)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleRegister)
			r.Get("/lookup", s.handleLookup)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Patch("/", s.handleUpdateProfile)
				r.Post("/sessions", s.handleRecordSession)
				r.Get("/history", s.handleHistory)
				r.Get("/recommendations", s.handleRecommendations)
				r.Get("/suggested-load", s.handleSuggestLoad)
			})
		})
	})

	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
}
