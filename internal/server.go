package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/export"
	"github.com/2beens/fittrack/internal/kvstore"
	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/tracker"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config            *config.Config
	adminPasswordHash string
	backend           *kvstore.Backend
	tracker           *tracker.Tracker
	redisClient       *redis.Client // nil when redis is not configured

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	AdminPasswordHash       string
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "fittrack-service")
	if err != nil {
		return nil, fmt.Errorf("honeycomb setup: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisHost != "" {
		rdb = kvstore.NewRedisClient(ctx, kvstore.NewRedisClientParams{
			Host:           cfg.RedisHost,
			Port:           cfg.RedisPort,
			Password:       params.RedisPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
	}

	// the pool collector is registered once the store is opened
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("fittrack", "main", promRegistry)

	cacheSize := 0
	if cfg.CacheEnabled {
		cacheSize = cfg.CacheSizeMB * 1024 * 1024
	}
	backend, err := kvstore.Open(ctx, kvstore.OpenParams{
		Backend:        cfg.StoreBackend,
		DataDir:        cfg.DataDir,
		RedisClient:    rdb,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
		Postgres: db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		},
		CacheSize:      cacheSize,
		MetricsManager: metricsManager,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("open store: %w", err)
	}

	if backend.DBPool != nil {
		promRegistry.MustRegister(pgxpoolprometheus.NewCollector(
			backend.DBPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}

	tr := tracker.New(backend.Store, tracker.WithMetrics(metricsManager))
	if err := tr.Initialize(ctx); err != nil {
		backend.Close()
		otelShutdown()
		return nil, fmt.Errorf("initialize tracker: %w", err)
	}

	if params.AdminPasswordHash == "" {
		log.Warnln("admin password hash not set, admin routes will refuse every request")
	}

	return &Server{
		config:            cfg,
		adminPasswordHash: params.AdminPasswordHash,
		backend:           backend,
		tracker:           tr,
		redisClient:       rdb,
		metricsManager:    metricsManager,
		promRegistry:      promRegistry,
		otelShutdown:      otelShutdown,
	}, nil
}

func (s *Server) routerSetup() http.Handler {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("fittrack-router"))

	var rateLimit func(http.Handler) http.Handler
	if s.redisClient != nil && s.config.RateLimitPerMin > 0 {
		rateLimit = middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			"api",
			s.config.RateLimitPerMin,
			s.metricsManager,
		)
	} else {
		log.Debugln("request rate limiting disabled")
	}
	adminOnly := middleware.AdminAuth(s.adminPasswordHash)

	tracker.NewHandler(s.tracker).SetupRoutes(r, rateLimit, adminOnly)
	export.NewHandler(export.NewService(s.tracker)).SetupRoutes(r, adminOnly)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET").Name("health")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.DrainAndCloseRequest())

	// mux middlewares only run for matched routes, cors has to see preflights too
	return middleware.Cors(s.config.AllowedOrigins)(r)
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	))
	metricsAddr := net.JoinHostPort(s.config.MetricsHost, s.config.MetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, so no write is cut in half by the store closing
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
		}
		log.Warnln("server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	s.backend.Close()

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown metrics http server: %s", err)
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeConnections.Inc()
	case http.StateClosed:
		s.metricsManager.GaugeConnections.Dec()
	default:
		// do nothing
	}
}
