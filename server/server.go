// Package server exposes the decision core over HTTP: a unary chat endpoint
// and an SSE streaming endpoint, with per-session context persistence and
// prometheus metrics. Transport stays thin; all conversation semantics live
// in core/orchestrator.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/NhanTrannn/TravelGO-sub000/core/orchestrator"
	"github.com/NhanTrannn/TravelGO-sub000/internal/profile"
	"github.com/NhanTrannn/TravelGO-sub000/internal/version"
	"github.com/NhanTrannn/TravelGO-sub000/store/sessiondb"
)

// Server hosts the HTTP API.
type Server struct {
	echoServer *echo.Echo
	orch       *orchestrator.Orchestrator
	sessions   sessiondb.DB
	profile    *profile.Profile
	metrics    *Metrics

	// locks serializes turns per session; the core assumes at most one
	// in-flight turn per context.
	locks sync.Map
}

// NewServer wires routes and middleware around an orchestrator.
func NewServer(p *profile.Profile, orch *orchestrator.Orchestrator, sessions sessiondb.DB) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echoServer: e,
		orch:       orch,
		sessions:   sessions,
		profile:    p,
		metrics:    NewMetrics(nil),
	}

	api := e.Group("/api/v1")
	api.POST("/chat", s.handleChat)
	api.POST("/chat/stream", s.handleChatStream)
	api.DELETE("/chat/:session_id", s.handleReset)

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server: listening", "addr", addr, "mode", s.profile.Mode, "version", s.profile.Version)
	return s.echoServer.Start(addr)
}

// Shutdown drains in-flight requests and closes the session store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server: shutdown failed", "error", err)
	}
	if err := s.sessions.Close(); err != nil {
		slog.Error("server: session store close failed", "error", err)
	}
	slog.Info("server: stopped")
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleReset(c echo.Context) error {
	sessionID := c.Param("session_id")
	if err := s.sessions.Delete(c.Request().Context(), sessionID); err != nil {
		s.metrics.RecordSessionError()
		slog.Error("server: session delete failed", "session_id", sessionID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "failed to reset session"})
	}
	return c.NoContent(http.StatusNoContent)
}

// sessionLock returns the per-session mutex, creating it on first use.
func (s *Server) sessionLock(sessionID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
