package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PingHandler serves /ping for liveness and /health for readiness.
type PingHandler struct {
	checks []HealthCheck
	logger *slog.Logger
}

// NewPingHandler creates a ping handler that runs checks on /health.
func NewPingHandler(log *slog.Logger, checks ...HealthCheck) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{checks: checks, logger: log.With(slog.String("handler", "ping"))}
}

// Register mounts GET /ping and GET|HEAD /health on the Echo instance.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.GET("/health", h.Health)
	e.HEAD("/health", h.Health)
}

// Ping returns 200 JSON {"status":"ok"}.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health runs every check and answers 503 if any fails.
func (h *PingHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	result := map[string]string{}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("check", check.Name), slog.Any("error", err))
			result[check.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		result[check.Name] = "ok"
	}
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, map[string]any{"status": http.StatusText(status), "checks": result})
}
