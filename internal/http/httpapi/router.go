package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pixelforge/internal/http/handlers"
	"pixelforge/internal/metrics"
	"pixelforge/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		metrics.Middleware,
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", app.Index)
	r.Get("/panels", app.ListPanels)
	r.Get("/panels/{id}", app.Panel)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SameOrigin)
		r.Post("/generate", app.Generate)
		r.Post("/settings/api-key", app.SetAPIKey)
		r.Delete("/panels/{id}", app.ClosePanel)
		r.Post("/panels/{id}/close", app.ClosePanel)
	})

	return r
}
