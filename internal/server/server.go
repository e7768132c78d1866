// Package server wires the gin router into an http.Server with gzip
// compression and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrart/internal/handlers"
)

// shutdownTimeout bounds how long in-flight requests may finish on exit.
const shutdownTimeout = 10 * time.Second

// NewRouter returns the gin engine with middleware, static assets and every
// route mounted.
func NewRouter(h *handlers.Handler, log logrus.FieldLogger, staticDir string) *gin.Engine {
	r := gin.New()
	r.Use(handlers.RequestLogger(log))
	r.Use(gin.Recovery())

	if staticDir != "" {
		r.Static("/web/static", staticDir)
	}
	h.Register(r)
	return r
}

// Server is the HTTP front end.
type Server struct {
	http *http.Server
	log  logrus.FieldLogger
}

// New wraps handler with gzip compression and binds it to addr.
func New(addr string, handler http.Handler, log logrus.FieldLogger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           gzhttp.GzipHandler(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.WithField("component", "server"),
	}
}

// Run serves until ctx is done, then shuts down gracefully. Batches are
// synchronous requests, so WriteTimeout is left unset.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.http.Addr).Info("listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
