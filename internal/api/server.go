package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/graybus/internal/bus"
	"github.com/nerrad567/graybus/internal/infrastructure/config"
	"github.com/nerrad567/graybus/internal/infrastructure/logging"
	"github.com/nerrad567/graybus/internal/infrastructure/mqtt"
	"github.com/nerrad567/graybus/internal/monitor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SampleSource returns the most recent statistics sample.
// *monitor.Collector satisfies it.
type SampleSource interface {
	Latest() (monitor.Sample, bool)
}

// Database is the subset of *database.DB used for health and metrics.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *bus.Registry
	Samples  SampleSource
	History  monitor.HistoryRepository // optional
	DB       Database                  // optional
	MQTT     *mqtt.Client              // optional
	Version  string
}

// Server is the HTTP inspection API of the node.
//
// It is created with New, started with Start and stopped with Close.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	registry  *bus.Registry
	samples   SampleSource
	history   monitor.HistoryRepository
	db        Database
	mqtt      *mqtt.Client
	version   string
	startTime time.Time

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("bus registry is required")
	}
	if deps.Samples == nil {
		return nil, fmt.Errorf("sample source is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		registry:  deps.Registry,
		samples:   deps.Samples,
		history:   deps.History,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start binds the listener and serves requests in a background goroutine.
//
// Binding happens before Start returns, so a port already in use is
// reported here rather than logged later.
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
