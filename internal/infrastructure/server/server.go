package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/SilexsecureTeam/defcomm-browser/internal/api/http"
	"github.com/SilexsecureTeam/defcomm-browser/internal/api/middleware"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/pending"
	"github.com/SilexsecureTeam/defcomm-browser/internal/bridge/surface"
	"github.com/SilexsecureTeam/defcomm-browser/internal/commands"
	"github.com/SilexsecureTeam/defcomm-browser/internal/events"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/config"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/logging"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/monitoring"
	"github.com/SilexsecureTeam/defcomm-browser/internal/infrastructure/tracing"
	"github.com/SilexsecureTeam/defcomm-browser/internal/metadata"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/browser/cdp"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/browser/sandbox"
	httpclient "github.com/SilexsecureTeam/defcomm-browser/internal/providers/http/client"
	"github.com/SilexsecureTeam/defcomm-browser/internal/ws"
)

const (
	shutdownTimeout   = 10 * time.Second
	cdpConnectTimeout = 15 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	bus      *events.Bus
	table    *pending.Table
	registry *surface.Registry
	host     *sandbox.Host
	cdp      *cdp.Browser
	ws       *ws.Handler
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	cancel    context.CancelFunc
	workers   sync.WaitGroup
	closeOnce sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
	logger.Info("Initializing bridge server",
		zap.String("addr", cfg.Server.Address()),
		zap.Duration("eval_timeout", cfg.Bridge.EvalTimeout),
		zap.Bool("cdp", cfg.CDP.Enabled),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("defcomm-browser", logger.Component("trace"))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		cancel:  cancel,
	}

	s.bus = events.NewBus(logger.Component("events"), metrics)
	s.table = pending.New(metrics.SetPending)
	s.registry = surface.NewRegistry(logger.Component("surface"), func(kind surface.Kind, n int) {
		metrics.SetSurfaces(string(kind), n)
	})

	relay := bridge.NewRelay(s.bus, s.table, cfg.Bridge.EventBuffer, metrics, logger.Component("relay"))
	relay.Start(ctx)

	s.ws = ws.NewHandler(s.registry, s.bus, metrics, logger.Component("ws"))
	forwarder := events.NewForwarder(s.bus, s.ws, cfg.Bridge.EventBuffer, logger.Component("forwarder"))
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		forwarder.Run(ctx)
	}()

	fetchOpts := httpclient.DefaultOptions()
	fetchOpts.UserAgent = cfg.Fetch.UserAgent
	fetchOpts.Timeout = cfg.Fetch.Timeout
	fetchOpts.MaxRedirects = cfg.Fetch.MaxRedirects
	fetchOpts.RateLimit = cfg.Fetch.RateLimit
	fetchOpts.Retries = cfg.Fetch.Retries
	fetcher := httpclient.New(fetchOpts, logger.Component("fetch"))

	hostCfg := sandbox.DefaultConfig()
	hostCfg.Timeout = cfg.Headless.ScriptTimeout
	s.host = sandbox.NewHost(hostCfg, s.registry, s.bus, fetcher, logger.Component("sandbox"))

	if cfg.CDP.Enabled {
		connectCtx, connectCancel := context.WithTimeout(ctx, cdpConnectTimeout)
		browser, err := cdp.Connect(connectCtx, cfg.CDP.URL, s.registry, s.bus, logger.Component("cdp"))
		connectCancel()
		if err != nil {
			logger.Warn("DevTools surfaces unavailable", zap.String("url", cfg.CDP.URL), zap.Error(err))
		} else {
			s.cdp = browser
			logger.Info("Connected to Chrome", zap.String("url", cfg.CDP.URL))
		}
	}

	evaluator := bridge.NewEvaluator(s.table, s.registry, cfg.Bridge.EvalTimeout, metrics, logger.Component("evaluator"))
	pipeline := metadata.NewPipeline(evaluator, fetcher, metrics, logger.Component("metadata"))

	dispatcher := commands.NewDispatcher(tracer, metrics, logger.Component("commands"))
	if err := commands.NewService(s.registry, evaluator, pipeline).Register(dispatcher); err != nil {
		s.shutdownComponents()
		return nil, fmt.Errorf("register commands: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(apihttp.Deps{
		Dispatcher: dispatcher,
		Registry:   s.registry,
		Host:       s.host,
		CDP:        s.cdp,
		Bus:        s.bus,
		Breakers:   fetcher.Breakers,
		Metrics:    metrics,
		Logger:     logger.Component("http"),
	})
	handlers.Register(router)

	router.GET("/bridge", s.ws.HandleBridge)
	router.GET("/events", s.ws.HandleEvents)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s.router = router
	s.http = &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully",
		zap.Int("commands", len(dispatcher.Definitions())),
	)
	return s, nil
}

// Router exposes the configured engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves HTTP until Close is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close drains HTTP connections, then closes surfaces and background workers.
// It is safe to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := s.http.Shutdown(ctx); shutdownErr != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(shutdownErr))
			err = fmt.Errorf("http shutdown: %w", shutdownErr)
		}

		s.shutdownComponents()
		_ = s.logger.Sync()
	})
	return err
}

func (s *Server) shutdownComponents() {
	if s.ws != nil {
		s.ws.Close()
	}
	if s.cdp != nil {
		if err := s.cdp.Close(); err != nil {
			s.logger.Warn("Failed to close DevTools pages", zap.Error(err))
		}
	}
	if s.host != nil {
		if err := s.host.Close(); err != nil {
			s.logger.Warn("Failed to close headless host", zap.Error(err))
		}
	}
	s.registry.CloseAll()
	s.table.Close()

	s.cancel()
	s.bus.Close()
	s.workers.Wait()
	s.tracer.Close()
}
