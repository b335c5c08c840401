package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ukydev/fleet-logbook/internal/auth"
	"github.com/ukydev/fleet-logbook/internal/db"
	"github.com/ukydev/fleet-logbook/internal/logbook"
	"github.com/ukydev/fleet-logbook/internal/middleware"
	"github.com/ukydev/fleet-logbook/internal/models"
)

// RouterConfig holds what NewRouter wires together.
type RouterConfig struct {
	Auth    *auth.Service
	Users   db.UserCollection
	Logbook *logbook.Service
	// Limiter is optional.
	Limiter *middleware.RateLimiter
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	authMW := middleware.NewAuthMiddleware(cfg.Auth)
	authH := NewAuthHandler(cfg.Auth, cfg.Users)
	roadLists := NewRoadListHandler(cfg.Logbook)
	vehicles := NewVehicleHandler(cfg.Logbook)
	surveys := NewSurveyHandler()
	can := authMW.RequirePermission

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authMW.Authenticate)

		r.Post("/auth/login", authH.Login)
		r.Get("/auth/profile", authH.GetProfile)
		r.Post("/auth/change-password", authH.ChangePassword)
		r.With(can(models.ActionManageUsers)).Post("/auth/register", authH.Register)

		r.Route("/vehicles", func(r chi.Router) {
			r.With(can(models.ActionViewVehicles)).Get("/", vehicles.List)
			r.Route("/{id}", func(r chi.Router) {
				r.With(can(models.ActionViewVehicles)).Get("/", vehicles.Get)
				r.With(can(models.ActionManageVehicles)).Put("/", vehicles.Put)
				r.With(can(models.ActionViewRoadLists)).Get("/roadlists", roadLists.Chain)
				r.With(can(models.ActionViewRoadLists)).Get("/roadlists/next-start", roadLists.NextStart)
				r.With(can(models.ActionViewRoadLists)).Get("/chain/verify", roadLists.Verify)
				r.With(can(models.ActionRebuildChain)).Post("/chain/rebuild", roadLists.Rebuild)
			})
		})

		r.Route("/roadlists", func(r chi.Router) {
			r.With(can(models.ActionEditRoadLists)).Put("/", roadLists.Upsert)
			r.With(can(models.ActionViewRoadLists)).Get("/{id}", roadLists.Get)
			r.With(can(models.ActionEditRoadLists)).Delete("/{id}", roadLists.Delete)
		})

		r.With(can(models.ActionPlanSurvey)).Post("/survey", surveys.Plan)
	})

	return r
}
