package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/explicae-app/explicae/internal/auth"
	"github.com/explicae-app/explicae/internal/billing"
	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/generation"
	"github.com/explicae-app/explicae/internal/storage"
	"github.com/explicae-app/explicae/internal/store"
)

type Api struct {
	Config       config.Config
	Router       *chi.Mux
	store        *store.Store
	orchestrator *generation.Orchestrator
	billing      *billing.Service
	exporter     *storage.S3Client
}

func NewApi(cfg config.Config, st *store.Store, orch *generation.Orchestrator, bill *billing.Service, exporter *storage.S3Client) (*Api, error) {
	api := &Api{
		Config:       cfg,
		Router:       chi.NewRouter(),
		store:        st,
		orchestrator: orch,
		billing:      bill,
		exporter:     exporter,
	}

	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://*.local:*", "http://localhost:*", "http://127.0.0.1:*", "https://" + api.Config.Domains.App},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(prometheusMiddleware)
	r.Use(middleware.Heartbeat("/heartbeat"))
	r.Use(auth.SessionMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	// Auth routes
	r.Post("/auth/register", auth.RegisterHandler)
	r.Post("/auth/login", auth.LoginHandler)
	r.Post("/auth/logout", auth.LogoutHandler)

	// Generation works for both anonymous visitors and signed-in users;
	// the entitlement check inside decides who gets through.
	r.Post("/generate", api.GenerateHandler)
	r.Get("/usage", api.UsageHandler)

	// Payment provider callbacks
	r.Post("/webhooks/{provider}", api.WebhookHandler)

	// Personal library
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Post("/analogies", api.SaveAnalogyHandler)
		r.Get("/analogies", api.ListAnalogiesHandler)
		r.Get("/analogies/export", api.ExportLibraryHandler)
		r.Get("/analogies/{id}", api.GetAnalogyHandler)
		r.Delete("/analogies/{id}", api.DeleteAnalogyHandler)
		r.Get("/analogies/{id}/qr", api.AnalogyQRHandler)
	})

	// Back-office
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Use(auth.RequireAdmin)
		r.Get("/admin/users", api.AdminListUsersHandler)
		r.Get("/admin/stats", api.AdminStatsHandler)
		r.Put("/admin/users/{id}/plan", api.AdminUpdatePlanHandler)
	})
}

func (api *Api) Serve() {
	// Expired sessions are swept in the background so login tables do
	// not grow without bound.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			if err := auth.CleanupExpiredSessions(); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
			<-ticker.C
		}
	}()

	log.Printf("Starting API server on 0.0.0.0:%d", api.Config.APIPort)
	log.Fatal(http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort), api.Router))
}
