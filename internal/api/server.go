package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/config"
	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
	"github.com/nerrad567/price-collector/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RunLister reads recent cycles from the run ledger.
type RunLister interface {
	List(ctx context.Context, limit int) ([]schedule.Cycle, error)
}

// SchemaVersioner reports the applied ledger schema version.
type SchemaVersioner interface {
	SchemaVersion(ctx context.Context) (string, error)
}

// Deps holds the dependencies required by the API server.
//
// Optional dependencies must be left as untyped nil when the matching
// component is disabled.
type Deps struct {
	Config  config.APIConfig
	Summary ConfigSummary
	Logger  *logging.Logger
	Status  *schedule.Status
	Checks  map[string]HealthChecker // keyed by component name
	Runs    RunLister                // optional: nil when the ledger is disabled
	Schema  SchemaVersioner          // optional
	Metrics http.Handler             // optional: served on /metrics
	Version string
}

// Server is the status HTTP server.
//
// It is created with New() and started with Start().
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg     config.APIConfig
	summary ConfigSummary
	logger  *logging.Logger
	status  *schedule.Status
	checks  map[string]HealthChecker
	runs    RunLister
	schema  SchemaVersioner
	metrics http.Handler
	version string

	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Logger and Status are required, the rest is optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Status == nil {
		return nil, fmt.Errorf("scheduler status is required")
	}

	s := &Server{
		cfg:     deps.Config,
		summary: deps.Summary,
		logger:  deps.Logger,
		status:  deps.Status,
		checks:  deps.Checks,
		runs:    deps.Runs,
		schema:  deps.Schema,
		metrics: deps.Metrics,
		version: deps.Version,
	}
	s.handler = s.buildRouter()

	return s, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listen address and serves in a background goroutine.
//
// Binding happens synchronously so a port already in use is reported to
// the caller rather than only logged.
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
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
	if s == nil || s.server == nil {
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
