// Package server exposes the studio over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"instapoem/internal/logging"
	"instapoem/internal/studio"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// Registry receives HTTP metrics and is served on /metrics.
	// Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server is the HTTP API.
type Server struct {
	studio     *studio.Studio
	router     chi.Router
	registry   *prometheus.Registry
	httpServer *http.Server
	opts       Options
}

// New builds the router and its middleware.
func New(st *studio.Studio, opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		studio:   st,
		registry: opts.Registry,
		opts:     opts,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(newMetrics(opts.Registry).middleware)
	r.Use(requestLogger)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/emotions", s.listEmotions)
		r.Get("/languages", s.listLanguages)
		r.Get("/schedule", s.listScheduled)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.listRecords)
			r.Post("/", s.createRecord)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getRecord)
				r.Delete("/", s.deleteRecord)
				r.Post("/regenerate", s.regeneratePoem)
				r.Put("/poem", s.editPoem)
				r.Put("/caption", s.setCaption)
				r.Post("/translate", s.translatePoem)
				r.Post("/schedule", s.schedule)
				r.Delete("/schedule", s.unschedule)

				r.Post("/quotes", s.generateQuotes)
				r.Put("/quotes/{quoteID}", s.editQuote)
				r.Delete("/quotes/{quoteID}", s.deleteQuote)
				r.Post("/quotes/{quoteID}/translate", s.translateQuote)
			})
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Server("HTTP server listening on %s", ln.Addr())
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	logging.Server("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	<-errCh
	logging.Server("HTTP server stopped")
	return nil
}
