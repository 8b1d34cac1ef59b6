// Package httpapi serves the auth REST API over echo.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dmitrijs2005/authservice/internal/logging"
	"github.com/dmitrijs2005/authservice/internal/server/models"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	echo *echo.Echo
	log  logging.Logger
}

// NewServer registers every route. admin may be nil, in which case the
// admin routes are not mounted.
func NewServer(auth AuthAPI, admin AdminAPI, store Pinger, log logging.Logger) *Server {
	log = log.With("module", "http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log, time.Now)
	e.Validator = newRequestValidator()
	e.Use(CorrelationID())
	e.Use(requestLogger(log))

	h := &handlers{auth: auth, admin: admin, store: store}

	e.GET("/healthz", h.health)

	v1 := e.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)

	test := v1.Group("/test")
	test.GET("/anyone", anyoneEndpoint)
	test.GET("/user", userEndpoint, Bearer(auth), RequireRole(models.RoleUser))
	test.GET("/admin", adminEndpoint, Bearer(auth), RequireRole(models.RoleAdmin))

	if admin != nil {
		adminGroup := v1.Group("/admin", Bearer(auth), RequireRole(models.RoleAdmin))
		adminGroup.DELETE("/users/:id/sessions", h.revokeSessions)
	}

	return &Server{echo: e, log: log}
}

// Handler returns the routes wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.echo, "authservice.http")
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", lis.Addr().String())
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.log.Info(ctx, "http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requestLogger(log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Info(c.Request().Context(), "request",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"took", time.Since(start),
			)
			return nil
		}
	}
}
