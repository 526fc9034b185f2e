// Package server provides the HTTP server and Echo setup for the catalog API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memohai/roastery/internal/auth"
	"github.com/memohai/roastery/internal/logger"
)

// multipartOverhead is added to the upload limit to leave room for form
// fields and part headers.
const multipartOverhead = 1 << 20

// Server is the HTTP server (Echo) with JWT middleware and registered handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// Options configures NewServer.
type Options struct {
	Addr           string
	JWTSecret      string
	MaxUploadBytes int64
	// AllowedOrigins lists the CORS origins; empty allows any origin.
	AllowedOrigins []string
}

// NewServer builds the Echo server. Recovery, request IDs and logging,
// security headers, CORS and the body limit all run ahead of JWT auth.
func NewServer(log *slog.Logger, opts Options, handlers ...Handler) *Server {
	if log == nil {
		log = slog.Default()
	}
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(corsConfig(opts.AllowedOrigins)))
	if opts.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(opts.MaxUploadBytes+multipartOverhead, 10) + "B"))
	}
	e.Use(auth.JWTMiddleware(opts.JWTSecret, PublicRoute))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log.With(slog.String("component", "server")),
	}
}

// requestLogger attaches a logger tagged with the request ID, method and path
// to the request context for handlers to pick up with logger.FromContext.
func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := log.With(
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
			)
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))
			return next(c)
		}
	}
}

func corsConfig(origins []string) middleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost,
			http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType,
			echo.HeaderAccept, echo.HeaderAuthorization,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID},
		MaxAge:        int((12 * time.Hour).Seconds()),
	}
}

// PublicRoute reports whether a request may skip token verification. Catalog
// and review reads are public, as are CORS preflights; every write needs a
// token.
func PublicRoute(c echo.Context) bool {
	path := c.Request().URL.Path
	method := c.Request().Method
	if method == http.MethodOptions {
		return true
	}
	switch path {
	case "/ping", "/health", "/metrics", "/api/swagger.json":
		return true
	}
	if strings.HasPrefix(path, "/auth/") || strings.HasPrefix(path, "/images/") || strings.HasPrefix(path, "/api/docs") {
		return true
	}
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	return path == "/coffees" || strings.HasPrefix(path, "/coffees/") || strings.HasPrefix(path, "/reviews/")
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server (blocks until shutdown).
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
