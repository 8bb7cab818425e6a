package app

import (
	"database/sql"
	"html/template"
	"net/http"
	"time"

	"yomitore/internal/app/observability"
	"yomitore/internal/dataset"
	"yomitore/internal/trainer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Deps are the long-lived components the router serves. DB is nil when
// history is kept in memory.
type Deps struct {
	DB      *sql.DB
	Trainer *trainer.Service
	Dataset *dataset.Provider
	Log     *zap.Logger
}

func NewRouter(cfg Config, deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	collector := observability.NewCollector(deps.DB, deps.Trainer, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(collector.Middleware)

	tmpl := template.Must(template.ParseGlob("web/templates/layout/*.html"))
	template.Must(tmpl.ParseGlob("web/templates/pages/*.html"))

	limiter := NewIPRateLimiter(cfg.APIRateLimitPerMin, time.Minute)
	trainerHandler := trainer.NewHandler(deps.Trainer)
	adminHandler := trainer.NewAdminHandler(deps.Dataset, log)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.With(CSRFCookieMiddleware).Get("/", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"Title":             "読みトレ",
			"RevealEnabled":     cfg.RevealEnabled,
			"RevealIntervalMS":  cfg.RevealInterval.Milliseconds(),
			"RevealMinInterval": cfg.RevealMinInterval.Milliseconds(),
			"RevealMaxInterval": cfg.RevealMaxInterval.Milliseconds(),
			"CSRFCookie":        csrfCookieName,
			"CSRFHeader":        csrfHeaderName,
		}

		if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
			log.Error("render page", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(RateLimitMiddleware(limiter))
		api.Use(CSRFMiddleware(cfg.CSRFEnforced))

		trainerHandler.Routes(api)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(AdminTokenMiddleware(cfg.AdminTokenHash))
			adminHandler.Routes(admin)
		})
	})

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	return r
}
