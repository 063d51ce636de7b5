/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the process together: database, cache, event
// bridge, production pipeline, and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_radio/internal/api"
	"github.com/friendsincode/skald_radio/internal/audit"
	"github.com/friendsincode/skald_radio/internal/cache"
	"github.com/friendsincode/skald_radio/internal/catalog"
	"github.com/friendsincode/skald_radio/internal/config"
	"github.com/friendsincode/skald_radio/internal/db"
	"github.com/friendsincode/skald_radio/internal/eventbus"
	"github.com/friendsincode/skald_radio/internal/events"
	"github.com/friendsincode/skald_radio/internal/ffmpeg"
	"github.com/friendsincode/skald_radio/internal/mixer"
	"github.com/friendsincode/skald_radio/internal/orchestrator"
	"github.com/friendsincode/skald_radio/internal/segmenter"
	"github.com/friendsincode/skald_radio/internal/storage"
	"github.com/friendsincode/skald_radio/internal/telemetry"
	"github.com/friendsincode/skald_radio/internal/tts"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db       *gorm.DB
	cache    *cache.Cache
	store    storage.ObjectStore
	bus      *events.Bus
	bridge   *eventbus.Bridge
	catalog  *catalog.Service
	auditSvc *audit.Service
	manager  *orchestrator.Manager
	api      *api.API
	tracer   *telemetry.TracerProvider

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TraceMiddleware("skald-radio-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	for _, dir := range []string{s.cfg.MediaRoot, s.cfg.OutputRoot, s.cfg.TempRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	if s.cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		segmentCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = segmentCache
			s.DeferClose(s.cache.Close)
		}
	}

	switch s.cfg.StorageBackend {
	case config.StorageS3:
		store, err := storage.NewS3Store(context.Background(), storage.S3Config{
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			Region:          s.cfg.S3Region,
			Bucket:          s.cfg.S3Bucket,
			Endpoint:        s.cfg.S3Endpoint,
			UsePathStyle:    s.cfg.S3UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("init s3 store: %w", err)
		}
		s.store = store
	default:
		store, err := storage.NewLocalStore(s.cfg.MediaRoot)
		if err != nil {
			return fmt.Errorf("init local store: %w", err)
		}
		s.store = store
	}

	if s.cfg.NATSEnabled {
		bridge, err := eventbus.NewBridge(s.cfg.NATSURL, s.bus, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("NATS bridge unavailable, events stay in-process")
		} else {
			s.bridge = bridge
		}
	}

	tracer, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:  "skald-radio",
		OTLPEndpoint: s.cfg.OTLPEndpoint,
		Enabled:      s.cfg.TracingEnabled,
		SampleRate:   s.cfg.TracingSampleRate,
	}, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("tracer initialization failed, continuing without tracing")
	} else {
		s.tracer = tracer
		s.DeferClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.tracer.Shutdown(ctx)
		})
	}

	s.catalog = catalog.New(database, s.bus, s.logger)
	s.auditSvc = audit.NewService(database, s.bus, s.logger)

	transcoder := ffmpeg.NewRunner(s.cfg.FFmpegBin, s.cfg.FFprobeBin, s.logger)
	mixEngine := mixer.New(transcoder, transcoder, s.catalog, s.cfg.TempRoot, s.logger)
	sliceEngine := segmenter.New(transcoder, s.cfg.OutputRoot, s.cfg.SegmentDuration, s.cfg.AudioFilterChain, s.logger)

	var speech tts.Synthesizer = tts.Noop{}
	if s.cfg.TTSEndpoint != "" {
		speech = tts.NewHTTPClient(s.cfg.TTSEndpoint, s.cfg.TTSAPIKey, s.cfg.TempRoot, s.logger)
	}

	s.manager = orchestrator.NewManager(s.cfg, s.catalog, s.catalog, mixEngine, sliceEngine, speech, s.bus, s.cache, s.store, s.logger)

	s.api = api.New(s.catalog, s.manager, s.auditSvc, s.cache, s.store, []byte(s.cfg.JWTSigningKey), s.logger)
	return nil
}

func (s *Server) configureRoutes() {
	s.api.Routes(s.router)
	// Metrics live on the main listener unless a dedicated bind is set.
	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("station manager exited")
		}
	}()

	if s.bridge != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.bridge.Run(ctx)
		}()
	}

	if s.cfg.MetricsBind != "" {
		metricsSrv := &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           telemetry.Handler(),
			ReadHeaderTimeout: 15 * time.Second,
		}
		// Not tracked in bgWG: the listener exits via its shutdown hook.
		go func() {
			s.logger.Info().Str("addr", metricsSrv.Addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		s.DeferClose(func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}
}

// Run starts the HTTP listener and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("HTTP shutdown failed")
	}
	return s.Close()
}

// HTTPServer exposes the underlying HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// DeferClose registers a shutdown hook, run in reverse order on Close.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Close stops background workers and runs shutdown hooks.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
