// Package api exposes the chat assistant and the admin dashboard over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"medbook/internal/config"
	"medbook/internal/domain"
	"medbook/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthFunc reports whether the process can serve requests.
type HealthFunc func(ctx context.Context) error

type HTTPServer struct {
	cfg     config.APIConfig
	chat    domain.ChatService
	admin   domain.AdminService
	health  HealthFunc
	auth    *HTTPAuth
	handler http.Handler
	server  *http.Server
	logger  zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, chat domain.ChatService, admin domain.AdminService, health HealthFunc, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:    cfg,
		chat:   chat,
		admin:  admin,
		health: health,
		auth:   NewHTTPAuth(cfg.Auth, cfg.RateLimit),
		logger: logging.Component(logger, "http"),
	}
	s.handler = s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(withRecovery)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require(PermChat))
			r.Post("/chat", s.handleChat)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/history", s.handleHistory)
				r.Post("/documents", s.handleAddDocument)
				r.Delete("/", s.handleClearSession)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require(PermAdmin))
			r.Get("/admin/bookings", s.handleListBookings)
			r.Post("/admin/bookings", s.handleCreateBooking)
			r.Get("/admin/bookings/export", s.handleExportBookings)
			r.Get("/admin/bookings/{id}", s.handleGetBooking)
		})
	})
	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
