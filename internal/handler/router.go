package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RouterConfig carries the collaborators the router needs besides Handler.
type RouterConfig struct {
	Tokens      TokenVerifier
	DB          Pinger
	Metrics     RequestRecorder
	MetricsPage http.Handler
	// AuthLimiter throttles the unauthenticated /auth endpoints; nil disables it.
	AuthLimiter *RateLimiter
	Log         logrus.FieldLogger
}

// NewRouter builds the chi router with every API route mounted.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Log))
	if cfg.Metrics != nil {
		r.Use(Instrument(cfg.Metrics))
	}

	r.Get("/health", HealthCheck(cfg.DB, cfg.Log))
	if cfg.MetricsPage != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsPage)
	}

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(cfg.Tokens))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthLimiter != nil {
					r.Use(cfg.AuthLimiter.Handler)
				}
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.Get("/me", h.Me)
		})

		r.Post("/users", h.CreateUser)

		r.Route("/workshops", func(r chi.Router) {
			r.Get("/", h.ListWorkshops)
			r.Post("/", h.CreateWorkshop)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWorkshop)
				r.Patch("/", h.UpdateWorkshop)
				r.Get("/seats", h.Seats)
				r.Get("/eligibility", h.Eligibility)
				r.Post("/enrollment", h.Enroll)
				r.Get("/enrollments", h.WorkshopEnrollments)
			})
		})

		r.Get("/students/me/enrollments", h.MyEnrollments)

		r.Route("/enrollments", func(r chi.Router) {
			r.Get("/", h.ListEnrollments)
			r.Delete("/{id}", h.CancelEnrollment)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not-found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method-not-allowed", "method not allowed")
	})
	return r
}
