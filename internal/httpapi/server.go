// Package httpapi exposes the reader's health and metrics surface over
// plain HTTP, the way the teacher's server packages wrap an echo.Echo
// per concern.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves /healthz and /metrics. It carries no reader state of its
// own beyond a liveness flag the caller toggles on shutdown.
type Server struct {
	e *echo.Echo
}

// New builds the server. healthy is polled on every /healthz request, so
// the caller can flip it to false as soon as shutdown begins.
func New(healthy func() bool) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/healthz", func(c echo.Context) error {
		if !healthy() {
			return c.String(http.StatusServiceUnavailable, "shutting down")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{e: e}
}

// Start runs the server in the background; errors after a clean
// shutdown are swallowed since echo.Echo.Start returns
// http.ErrServerClosed once Shutdown has been called.
func (s *Server) Start(addr string) {
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.e.Logger.Fatal(err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
