// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/models"
	"github.com/wallet-insights/internal/service"
)

// Service interfaces for dependency injection and testing

// AnalysisServiceInterface defines the wallet analysis operations
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, input service.AnalyzeInput) (*service.AnalyzeResult, error)
	History(ctx context.Context, address string, limit int) ([]*models.AnalysisRecord, error)
}

// LeaderboardServiceInterface defines the leaderboard operations
type LeaderboardServiceInterface interface {
	Leaderboard(ctx context.Context, q models.LeaderboardQuery) (*service.LeaderboardResult, error)
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// BreakerReporter exposes a circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

// Server represents the HTTP API server.
type Server struct {
	router             *mux.Router
	httpServer         *http.Server
	analysisService    AnalysisServiceInterface
	leaderboardService LeaderboardServiceInterface
	rateLimiter        *RateLimiter
	logger             *logging.Logger
	config             *ServerConfig

	healthMu     sync.RWMutex
	healthChecks map[string]HealthCheck
	breakers     map[string]BreakerReporter
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond float64 // per client IP
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	analysisService AnalysisServiceInterface,
	leaderboardService LeaderboardServiceInterface,
	logger *logging.Logger,
) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:             mux.NewRouter(),
		analysisService:    analysisService,
		leaderboardService: leaderboardService,
		rateLimiter:        NewRateLimiter(config.RequestsPerSecond, config.Burst),
		logger:             logger,
		config:             config,
		healthChecks:       make(map[string]HealthCheck),
		breakers:           make(map[string]BreakerReporter),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Request ID first so every later layer logs with it
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(s.rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Wallet endpoints
	api.HandleFunc("/wallet/analyze", s.handleAnalyzeWallet).Methods("POST", "OPTIONS")
	api.HandleFunc("/wallet/{address}/history", s.handleWalletHistory).Methods("GET", "OPTIONS")

	// Leaderboard endpoints
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET", "OPTIONS")
}

// Router returns the HTTP handler for embedding and tests
func (s *Server) Router() http.Handler {
	return s.router
}

// RegisterHealthCheck adds a named dependency probe to /health
func (s *Server) RegisterHealthCheck(name string, check HealthCheck) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.healthChecks[name] = check
}

// RegisterBreaker reports a circuit breaker state on /health
func (s *Server) RegisterBreaker(name string, b BreakerReporter) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.breakers[name] = b
}

// RateLimiter returns the per-client limiter
func (s *Server) RateLimiter() *RateLimiter {
	return s.rateLimiter
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks"`
	Breakers map[string]string `json:"breakers"`
}

// handleHealth handles health check requests. Any failing dependency
// reports 503; open breakers only degrade the status text.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	s.healthMu.RLock()
	names := make([]string, 0, len(s.healthChecks))
	for name := range s.healthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:   "healthy",
		Service:  "wallet-insights",
		Checks:   make(map[string]string, len(names)),
		Breakers: make(map[string]string, len(s.breakers)),
	}
	status := http.StatusOK

	for _, name := range names {
		if err := s.healthChecks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	for name, b := range s.breakers {
		state := b.BreakerState()
		resp.Breakers[name] = state
		if state != "closed" && resp.Status == "healthy" {
			resp.Status = "degraded"
		}
	}
	s.healthMu.RUnlock()

	respondJSON(w, status, resp)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
