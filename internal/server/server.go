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
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_reels/internal/api"
	"github.com/friendsincode/grimnir_reels/internal/cache"
	"github.com/friendsincode/grimnir_reels/internal/clock"
	"github.com/friendsincode/grimnir_reels/internal/config"
	"github.com/friendsincode/grimnir_reels/internal/content"
	"github.com/friendsincode/grimnir_reels/internal/db"
	"github.com/friendsincode/grimnir_reels/internal/eventbus"
	"github.com/friendsincode/grimnir_reels/internal/session"
	"github.com/friendsincode/grimnir_reels/internal/storage"
	"github.com/friendsincode/grimnir_reels/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db      *gorm.DB
	cache   *cache.Cache
	bus     eventbus.Bus
	manager *session.Manager
	api     *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("grimnir-reels-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Session websockets are long-lived.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// Websocket handlers manage their own deadlines.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.MetricsBind != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	repo, err := s.initRepository()
	if err != nil {
		return err
	}

	cacheCfg := cache.DefaultConfig()
	cacheCfg.RedisAddr = s.cfg.RedisAddr
	cacheCfg.RedisPassword = s.cfg.RedisPassword
	cacheCfg.RedisDB = s.cfg.RedisDB
	cacheCfg.QueueTTL = s.cfg.CacheTTL
	if s.cfg.CacheEnabled {
		queueCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
			queueCache = cache.Disabled(cacheCfg, s.logger)
		}
		s.cache = queueCache
		s.DeferClose(func() error { return queueCache.Close() })
	} else {
		s.cache = cache.Disabled(cacheCfg, s.logger)
	}
	repo = content.NewCachedRepository(repo, s.cache, s.logger)

	// Presigned URLs expire, so they are resolved outside the cache.
	if s.cfg.S3Enabled {
		presigner, err := storage.NewS3Presigner(context.Background(), storage.S3Config{
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			PublicBaseURL:   s.cfg.S3PublicBaseURL,
			UsePathStyle:    s.cfg.S3UsePathStyle,
			TTL:             s.cfg.S3PresignTTL,
		})
		if err != nil {
			return fmt.Errorf("initialize s3 presigner: %w", err)
		}
		repo = content.NewResolvingRepository(repo, presigner)
		s.logger.Info().Str("region", s.cfg.S3Region).Bool("public_base_url", s.cfg.S3PublicBaseURL != "").Msg("s3 media resolution enabled")
	}

	s.bus = s.initEventBus()
	s.DeferClose(s.bus.Close)

	s.manager = session.NewManager(repo, s.cfg.Playback(), clock.Real(), s.bus, s.logger)
	s.api = api.New(s.manager, s.bus, s.logger)
	s.api.SetStartMuted(s.cfg.StartMuted)
	return nil
}

func (s *Server) initRepository() (content.Repository, error) {
	switch s.cfg.ContentSource {
	case config.ContentFile:
		f, err := content.LoadFile(s.cfg.ContentFile)
		if err != nil {
			return nil, fmt.Errorf("load content file: %w", err)
		}
		s.logger.Info().Str("path", s.cfg.ContentFile).Int("collections", len(f.Collections)).Msg("serving content from file")
		return content.Instrument("file", content.NewFileRepository(f)), nil
	default:
		database, err := db.Connect(s.cfg)
		if err != nil {
			return nil, err
		}
		s.DeferClose(func() error { return db.Close(database) })
		if err := db.Migrate(database); err != nil {
			return nil, err
		}
		s.db = database
		return content.Instrument("db", content.NewGormRepository(database)), nil
	}
}

func (s *Server) initEventBus() eventbus.Bus {
	nodeID := eventbus.NodeID(s.cfg.InstanceID)

	switch s.cfg.EventTransport {
	case config.EventsRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = s.cfg.RedisAddr
		redisCfg.Password = s.cfg.RedisPassword
		redisCfg.DB = s.cfg.RedisDB
		return eventbus.NewRedisBus(redisCfg, nodeID, s.logger)
	case config.EventsNATS:
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		s.logger.Info().Str("url", natsCfg.URL).Str("node_id", nodeID).Msg("nats event transport enabled")
		return eventbus.NewNATSBus(natsCfg, nodeID, s.logger)
	default:
		return eventbus.NewMemory()
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer exposes the Prometheus listener. It is nil when no metrics
// bind is configured.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	if s.manager != nil {
		s.manager.CloseAll()
	}
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.api.Routes(s.router)
}
