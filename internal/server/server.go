/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/canvas_frame/internal/api"
	"github.com/friendsincode/canvas_frame/internal/canvas"
	"github.com/friendsincode/canvas_frame/internal/config"
	"github.com/friendsincode/canvas_frame/internal/events"
	"github.com/friendsincode/canvas_frame/internal/fstore"
	"github.com/friendsincode/canvas_frame/internal/models"
	"github.com/friendsincode/canvas_frame/internal/photos"
	"github.com/friendsincode/canvas_frame/internal/playlist"
	"github.com/friendsincode/canvas_frame/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	store        *fstore.Store
	photos       *photos.Service
	engine       *playlist.Engine
	canvasClient *canvas.Client
	battery      *canvas.BatteryCache
	bus          *events.Bus
	api          *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	srv := &Server{
		cfg:     cfg,
		logger:  logger,
		bus:     events.NewBus(),
		battery: canvas.NewBatteryCache(),
	}

	srv.store = fstore.New(cfg.DataDir, logger)
	srv.photos = photos.NewService(srv.store, srv.bus, logger)
	srv.canvasClient = canvas.NewClient(logger)
	srv.engine = playlist.NewEngine(srv.store, srv.photos, srv.canvasClient, srv.bus, cfg.ServerURL, logger)
	srv.api = api.New(cfg, srv.engine, srv.photos, srv.canvasClient, srv.battery, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("canvas-frame-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(srv.batteryReportMiddleware)
	srv.router = router

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

// HTTPServer exposes the configured http.Server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router exposes the assembled router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close stops background workers.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	return nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")

		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// batteryReportMiddleware captures the battery percentage the frame
// piggybacks on its requests.
func (s *Server) batteryReportMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("battery"); raw != "" {
			if pct, err := models.ParseBatteryPercentage(raw); err == nil {
				s.battery.Record(pct)
				telemetry.BatteryPercentage.Set(float64(pct))
				s.bus.Publish(events.EventBatteryReported, events.Payload{"percentage": int(pct)})
			} else {
				s.logger.Debug().Str("battery", raw).Msg("ignoring malformed battery report")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runPhotoGaugeUpdater(ctx)
	}()
}

// runPhotoGaugeUpdater keeps the stored-photo gauge current by listening
// for index mutations.
func (s *Server) runPhotoGaugeUpdater(ctx context.Context) {
	uploaded := s.bus.Subscribe(events.EventPhotoUploaded)
	cleared := s.bus.Subscribe(events.EventPhotosCleared)
	defer func() {
		s.bus.Unsubscribe(events.EventPhotoUploaded, uploaded)
		s.bus.Unsubscribe(events.EventPhotosCleared, cleared)
	}()

	refresh := func() {
		count, err := s.photos.Count()
		if err != nil {
			s.logger.Debug().Err(err).Msg("photo gauge refresh failed")
			return
		}
		telemetry.PhotosStored.Set(float64(count))
	}
	refresh()

	for {
		select {
		case <-ctx.Done():
			return
		case <-uploaded:
			refresh()
		case <-cleared:
			refresh()
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}
