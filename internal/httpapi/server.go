// Package httpapi exposes the chat engine over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/eirene/internal/engine"
	"github.com/fyrsmithlabs/eirene/internal/safety"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server serves the chat API.
type Server struct {
	echo    *echo.Echo
	engine  *engine.Engine
	metrics *Metrics
	logger  *zap.Logger
	config  Config
}

// NewServer creates the server and registers its routes.
func NewServer(eng *engine.Engine, cfg Config, logger *zap.Logger) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewMetrics()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		engine:  eng,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	s.echo.POST("/chat/start", s.handleStart)
	s.echo.POST("/chat/check", s.handleCheck)
	s.echo.POST("/chat", s.handleChat)
	s.echo.POST("/chat/end", s.handleEnd)
}

// StartSessionRequest is the request body for POST /chat/start.
type StartSessionRequest struct {
	UserID string `json:"user_id"`
}

// StartSessionResponse is the response body for POST /chat/start.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

// SessionRequest is the request body for the check, chat, and end
// endpoints.
type SessionRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

// StatusResponse is a generic status message body.
type StatusResponse struct {
	Status string `json:"status"`
}

// MessageResponse is a generic message body.
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleStart(c echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid start request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.UserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id field is required")
	}

	sess := s.engine.StartSession(c.Request().Context(), req.UserID)
	return c.JSON(http.StatusOK, StartSessionResponse{SessionID: sess.ID})
}

func (s *Server) handleCheck(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if _, ok := s.engine.CheckSession(req.SessionID); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}

func (s *Server) handleChat(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, ok := s.engine.CheckSession(req.SessionID); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.WriteHeader(http.StatusOK)

	s.metrics.turnsTotal.Inc()
	safetyTriggered := false
	err := s.engine.Turn(c.Request().Context(), req.SessionID, req.Message,
		func(_ context.Context, chunk string) error {
			if chunk == safety.Message {
				safetyTriggered = true
			}
			if _, err := resp.Write([]byte(chunk)); err != nil {
				return err
			}
			resp.Flush()
			return nil
		})
	if err != nil {
		// The session existed moments ago; losing it mid-request
		// still has to close the stream cleanly.
		if errors.Is(err, engine.ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if safetyTriggered {
		s.metrics.safetyTotal.Inc()
	}
	return nil
}

func (s *Server) handleEnd(c echo.Context) error {
	var req SessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := s.engine.EndSession(c.Request().Context(), req.SessionID); err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Session not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Session %s ended.", req.SessionID),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
