// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/nexaguard/internal/config"
	"github.com/mbd888/nexaguard/internal/health"
	"github.com/mbd888/nexaguard/internal/history"
	"github.com/mbd888/nexaguard/internal/logging"
	"github.com/mbd888/nexaguard/internal/metrics"
	"github.com/mbd888/nexaguard/internal/realtime"
	"github.com/mbd888/nexaguard/internal/risk"
	"github.com/mbd888/nexaguard/internal/security"
	"github.com/mbd888/nexaguard/internal/sui"
	"github.com/mbd888/nexaguard/internal/validation"
)

// Version is reported by /health.
const Version = "0.1.0"

// Ledger is what the server needs from the fullnode: the analyzer reads plus
// a cheap call for health checks.
type Ledger interface {
	risk.Ledger
	GetLatestCheckpointSequenceNumber(ctx context.Context) (string, error)
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	ledger       Ledger
	closeLedger  func()
	history      *history.Log
	realtimeHub  *realtime.Hub
	health       *health.Registry
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run
	drainDelay   time.Duration

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLedger sets a custom fullnode client (for testing)
func WithLedger(l Ledger) Option {
	return func(s *Server) {
		s.ledger = l
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		logger:     logging.New(cfg.LogLevel, cfg.LogFormat),
		history:    history.New(history.DefaultCapacity),
		health:     health.NewRegistry(),
		drainDelay: 5 * time.Second,
	}

	// Apply options first (may set ledger/logger)
	for _, opt := range opts {
		opt(s)
	}

	if s.ledger == nil {
		client, err := dialLedger(cfg, s.logger)
		if err != nil {
			return nil, err
		}
		s.ledger = client
		s.closeLedger = client.Close
	}

	s.health.Register("sui", health.PingChecker("sui", 5*time.Second, func(ctx context.Context) (string, error) {
		seq, err := s.ledger.GetLatestCheckpointSequenceNumber(ctx)
		if err != nil {
			return "", err
		}
		return "checkpoint " + seq, nil
	}))

	s.realtimeHub = realtime.NewHub(s.logger, cfg.AllowedOrigins...)

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)
	return s, nil
}

func dialLedger(cfg *config.Config, logger *slog.Logger) (*sui.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := sui.Dial(ctx, sui.Config{
		URL:              cfg.SuiNodeURL,
		Timeout:          cfg.SuiRPCTimeout,
		BreakerThreshold: cfg.BreakerThreshold,
		BreakerCooldown:  cfg.BreakerCooldown,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("dial sui fullnode: %w", err)
	}
	logger.Info("connected to sui fullnode", "url", client.URL(), "network", cfg.SuiNetwork)
	return client, nil
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	s.router.Use(
		recoveryMiddleware(),
		security.HeadersMiddleware(),
		security.CORSMiddleware(s.cfg.AllowedOrigins),
		validation.RequestSizeMiddleware(validation.MaxRequestSize),
		metrics.Middleware(),
		requestIDMiddleware(s.logger),
		accessLogMiddleware(),
	)
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/", s.rootHandler)
	s.router.GET("/feed", feedPageHandler)

	// WebSocket feed of completed analyses
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	riskHandler := risk.NewHandler(
		risk.NewWalletAnalyzer(s.ledger, s.logger),
		risk.NewTokenAnalyzer(s.ledger, s.logger),
		s.history,
	).WithEvents(s.realtimeHub)

	api := s.router.Group("/api")
	api.Use(timeoutMiddleware(s.cfg.RequestTimeout))
	riskHandler.RegisterRoutes(api)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

var networkNames = map[string]string{
	"testnet": "Testnet",
	"devnet":  "Devnet",
}

func (s *Server) rootHandler(c *gin.Context) {
	name, ok := networkNames[s.cfg.SuiNetwork]
	if !ok {
		name = "Mainnet"
	}
	c.String(http.StatusOK, "Nexa Guard Backend Active (%s)", name)
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Realtime  *realtime.Stats `json:"realtime,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, checks := s.health.CheckAll(c.Request.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	hub := s.realtimeHub.Stats()

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   Version,
		Checks:    checks,
		Realtime:  &hub,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the server and blocks until a signal, ctx cancellation or a
// listener error.
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"sui_node", s.cfg.SuiNodeURL,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.realtimeHub.Run(runCtx)
	go metrics.StartRuntimeCollector(runCtx, 15*time.Second)

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown drains and stops the server.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Stops the realtime hub and runtime collector
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(s.drainDelay)

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	if s.closeLedger != nil {
		s.closeLedger()
		s.logger.Info("fullnode client closed")
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin engine (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
