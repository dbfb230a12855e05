// Package server exposes the analysis orchestrator over HTTP.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/metrics"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/render"
	slmiddleware "github.com/pankaj-dahiya-devops/shiftleft/internal/server/middleware"
)

// maxBodyBytes bounds a submitted analysis request.
const maxBodyBytes = 32 << 20

// AnalysisService is what the handlers need from the orchestrator.
type AnalysisService interface {
	PerformAnalysis(ctx context.Context, req analysis.Request) (*models.AnalysisResult, error)
	GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error)
	ListAnalyses(ctx context.Context, filter analysis.ListFilter) ([]*models.AnalysisResult, error)
	DeleteAnalysis(ctx context.Context, id string) error
}

type Dependencies struct {
	Analyses AnalysisService
	Catalogs []render.Catalog

	// Metrics, when set, is served on /metrics.
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

type WebAPI struct {
	router          http.Handler
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

// ConfigureRouter builds the routing tree. It is separate from NewWebAPI so
// tests can mount it on an httptest server.
func ConfigureRouter(config Config) http.Handler {
	logger := config.Dependencies.Logger
	h := newHandler(config.Dependencies)

	router := chi.NewRouter()

	router.Use(slmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", h.Health)
	if config.Dependencies.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", config.Dependencies.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyses", h.CreateAnalysis)
		r.Get("/analyses", h.ListAnalyses)
		r.Get("/analyses/{id}", h.GetAnalysis)
		r.Delete("/analyses/{id}", h.DeleteAnalysis)
		r.Get("/analyses/{id}/export", h.ExportAnalysis)
		r.Get("/rules", h.ListRules)
		r.Get("/rules/{id}", h.GetRule)
	})

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebAPI{
		router:          router,
		logger:          &logger,
		shutdownTimeout: timeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the configured router.
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until the listener fails or SIGINT/SIGTERM arrives, then
// drains in-flight requests within the shutdown timeout.
func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
