// Package server is the HTTP JSON API over a navigator: columns, search,
// entry edits and coherence reports.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/agentic-research/faultcat/internal/coherence"
	"github.com/agentic-research/faultcat/internal/metrics"
	"github.com/agentic-research/faultcat/internal/navigator"
)

// Server wires the API routes to a navigator.
type Server struct {
	nav     *navigator.Navigator
	checker *coherence.Checker
	engine  *gin.Engine
}

// New builds the router.
func New(nav *navigator.Navigator) *Server {
	s := &Server{nav: nav, checker: coherence.New(nav.Store())}
	s.engine = s.router()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(), RequestLogger(), metrics.PrometheusMiddleware())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/columns", s.columns)
	api.GET("/search", s.search)
	api.PUT("/entries", s.edit)
	api.GET("/check", s.check)
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
