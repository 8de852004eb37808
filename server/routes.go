package server

import (
	"net/http"

	"github.com/crlsmrls/modsentry/cmd"
	"github.com/crlsmrls/modsentry/config"
	"github.com/crlsmrls/modsentry/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// setupRoutes configures the application's routes: the two ingestion
// endpoints over the Engine, plus the ambient health/metrics/version
// surface (SPEC_FULL §4.8 C17).
func setupRoutes(router *chi.Mux, cfg *config.Config, reg *prometheus.Registry, engine *Engine) {
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Get("/version", cmd.VersionHandler)

	router.Post("/v1/content", engine.ContentHandler)
	router.Post("/v1/chat", engine.ChatHandler)

	router.Handle(cfg.MetricsPath, metrics.MetricsHandler(reg))
}
