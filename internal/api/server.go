package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/aq-logger/internal/forwarder"
	"github.com/nerrad567/aq-logger/internal/infrastructure/config"
	"github.com/nerrad567/aq-logger/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds the dependency checks behind /healthz.
const healthCheckTimeout = 2 * time.Second

// StatusProvider supplies the forwarder snapshot.
type StatusProvider interface {
	Status() forwarder.Status
}

// ConnectionReporter reports whether an optional link is up.
type ConnectionReporter interface {
	IsConnected() bool
}

// HealthChecker reports whether a local dependency, such as the buffer,
// is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Status  StatusProvider
	Metrics http.Handler       // optional: serves /metrics when set
	MQTT    ConnectionReporter // optional
	Buffer  HealthChecker      // optional: checked by /healthz
	Version string
}

// Server is the HTTP status server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	status  StatusProvider
	metrics http.Handler
	mqtt    ConnectionReporter
	buffer  HealthChecker
	version string
	started time.Time

	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - error: wraps ErrMissingDependency if the logger or status provider is nil
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("%w: status provider", ErrMissingDependency)
	}

	s := &Server{
		cfg:     deps.Config,
		logger:  deps.Logger.With("component", "api"),
		status:  deps.Status,
		metrics: deps.Metrics,
		mqtt:    deps.MQTT,
		buffer:  deps.Buffer,
		version: deps.Version,
		started: time.Now(),
	}
	return s, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in a background goroutine.
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
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
