// Package api serves levfarm state over REST and pushes chain events over a
// websocket feed. It runs the keepers in-process over an in-memory store.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cosmossdk.io/log"

	"github.com/openalpha/levfarm/api/middleware"
	"github.com/openalpha/levfarm/api/websocket"
	"github.com/openalpha/levfarm/metrics"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	hub        *websocket.Hub
	service    *Service
	config     *Config
	logger     log.Logger

	rateLimiter *middleware.RateLimiter
	stopCh      chan struct{}
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool
	// AutoAdvance produces a block every interval; zero leaves block production to POST /v1/advance
	AutoAdvance time.Duration

	Service ServiceConfig
	Hub     *websocket.HubConfig
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		AutoAdvance:  0,
		Service:      DefaultServiceConfig(),
		Hub:          websocket.DefaultHubConfig(),
	}
}

// NewServer builds the service and wires its events into the websocket hub
func NewServer(config *Config, logger log.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger = logger.With("module", "api")

	hub := websocket.NewHub(config.Hub, logger)
	service, err := NewService(logger, config.Service)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	service.SetPublisher(hub.Publish)

	return &Server{
		hub:         hub,
		service:     service,
		config:      config,
		logger:      logger,
		rateLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		stopCh:      make(chan struct{}),
	}, nil
}

// Service returns the chain service behind the server
func (s *Server) Service() *Service {
	return s.service
}

// Hub returns the websocket hub
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// Handler returns the full middleware-wrapped route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(pattern, h))
	}

	handle("GET /health", s.handleHealth)
	handle("GET /v1/status", s.handleStatus)

	handle("GET /v1/vaults", s.handleVaults)
	handle("GET /v1/vaults/{id}", s.handleVault)
	handle("GET /v1/vaults/{id}/positions", s.handlePositions)
	handle("GET /v1/vaults/{id}/positions/{pid}", s.handlePosition)
	handle("GET /v1/vaults/{id}/at-risk", s.handleAtRisk)
	handle("GET /v1/vaults/{id}/kills", s.handleKills)
	handle("GET /v1/workers", s.handleWorkers)
	handle("GET /v1/deltaneutral", s.handleDeltaNeutralVaults)
	handle("GET /v1/deltaneutral/{id}", s.handleDeltaNeutral)
	handle("GET /v1/events", s.handleEvents)

	handle("POST /v1/vaults/{id}/positions/{pid}/kill", s.handleKill)
	handle("POST /v1/workers/{id}/reinvest", s.handleReinvest)
	handle("POST /v1/prices/{denom}", s.handleSetPrice)
	handle("POST /v1/advance", s.handleAdvance)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	// CORS -> RateLimit -> Handler
	if s.config.DisableRateLimit {
		return corsMiddleware(mux)
	}
	return corsMiddleware(middleware.RateLimitMiddleware(s.rateLimiter)(mux))
}

// Start starts the API server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.hub.Run()
	if s.config.AutoAdvance > 0 {
		go s.produceBlocks(s.config.AutoAdvance)
	}

	s.logger.Info("API server starting",
		"addr", addr,
		"rate_limit", !s.config.DisableRateLimit,
		"auto_advance", s.config.AutoAdvance.String(),
	)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	close(s.stopCh)
	s.hub.Stop()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// produceBlocks advances the chain on a wall-clock ticker
func (s *Server) produceBlocks(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.service.Advance(interval); err != nil {
				s.logger.Error("block production failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
