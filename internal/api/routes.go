package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
	"github.com/satriahrh/radiocaption/internal/websocket"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// InitRoutes initializes all API routes
func InitRoutes(
	e *echo.Echo,
	hub *websocket.Hub,
	repo repositories.CaptionRepository,
	live websocket.StatusSource,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) {
	h := &handlers{repo: repo, live: live, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "radiocaption",
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/sessions", h.listSessions)
	v1.GET("/sessions/current", h.currentSession)
	v1.GET("/sessions/:id", h.getSession)
	v1.GET("/sessions/:id/transcripts", h.getTranscripts)

	// Caption subscribers
	e.GET("/ws/captions", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

type handlers struct {
	repo   repositories.CaptionRepository
	live   websocket.StatusSource
	logger *zap.Logger
}

func (h *handlers) listSessions(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "limit must be a positive integer",
			})
		}
		limit = min(n, maxListLimit)
	}

	sessions, err := h.repo.ListSessions(c.Request().Context(), limit)
	if err != nil {
		return h.internalError(c, "Failed to list sessions", err)
	}

	return c.JSON(http.StatusOK, SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

func (h *handlers) currentSession(c echo.Context) error {
	if h.live != nil {
		if session, ok := h.live.Current(); ok {
			return c.JSON(http.StatusOK, session)
		}
	}
	return c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "no_active_session",
		Message: "No caption session is running",
	})
}

func (h *handlers) getSession(c echo.Context) error {
	session, err := h.repo.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Session not found",
			})
		}
		return h.internalError(c, "Failed to get session", err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *handlers) getTranscripts(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if _, err := h.repo.GetSession(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Session not found",
			})
		}
		return h.internalError(c, "Failed to get session", err)
	}

	segments, err := h.repo.ListSegments(ctx, id)
	if err != nil {
		return h.internalError(c, "Failed to list transcripts", err)
	}

	return c.JSON(http.StatusOK, TranscriptResponse{SessionID: id, Segments: segments, Count: len(segments)})
}

func (h *handlers) internalError(c echo.Context, msg string, err error) error {
	h.logger.Error(msg, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: msg,
	})
}
