package api

import (
	"net/http"
	"sync"

	"coworkd/internal/auth"
	"coworkd/internal/booking"
	"coworkd/internal/config"
	"coworkd/internal/domain"
	"coworkd/internal/service"
	"coworkd/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server wires the HTTP surface to the services. All routes live under
// /api/v1 and reply with the {success, data|message} envelope.
type Server struct {
	bookings   *booking.Service
	spaces     *service.SpaceService
	users      *service.UserService
	audit      domain.AuditReader
	tokens     *auth.Manager
	tokenStore domain.TokenStore
	exporter   *worker.ExportWorker
	logger     *zerolog.Logger

	corsOrigins  []string
	limiterRPS   float64
	limiterBurst int

	quit      chan struct{}
	closeOnce sync.Once
}

func NewServer(
	bookings *booking.Service,
	spaces *service.SpaceService,
	users *service.UserService,
	audit domain.AuditReader,
	tokens *auth.Manager,
	tokenStore domain.TokenStore,
	exporter *worker.ExportWorker,
	cfg config.ServerConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		bookings:     bookings,
		spaces:       spaces,
		users:        users,
		audit:        audit,
		tokens:       tokens,
		tokenStore:   tokenStore,
		exporter:     exporter,
		logger:       logger,
		corsOrigins:  cfg.CORSOrigins,
		limiterRPS:   cfg.RateLimit.RPS,
		limiterBurst: cfg.RateLimit.Burst,
		quit:         make(chan struct{}),
	}
}

// Close stops background maintenance started by Router. Safe to call more
// than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(s.rateLimit)

	origins := s.corsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Get("/me", s.handleMe)
				r.Get("/logout", s.handleLogout)
			})
		})

		r.Route("/coworkingspaces", func(r chi.Router) {
			// Browsing spaces needs no account.
			r.Get("/", s.handleListSpaces)
			r.Get("/{id}", s.handleGetSpace)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Post("/{id}/reservations", s.handleCreateReservation)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Post("/", s.handleCreateSpace)
					r.Put("/{id}", s.handleUpdateSpace)
					r.Delete("/{id}", s.handleDeleteSpace)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/reservations", func(r chi.Router) {
				r.Get("/", s.handleListReservations)
				r.Get("/search", s.handleSearchReservations)
				r.Get("/{id}", s.handleGetReservation)
				r.Put("/{id}", s.handleUpdateReservation)
				r.Delete("/{id}", s.handleDeleteReservation)

				r.Group(func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/export", s.handleExportReservations)
					r.Get("/{id}/audit", s.handleReservationAudit)
				})
			})

			r.With(s.requireAdmin).Get("/audit", s.handleListAudit)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
