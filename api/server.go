package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"heartlink/config"
	"heartlink/discovery"
	"heartlink/link"
)

// Device is the connection state the API reports and repairs
type Device interface {
	Status() link.Snapshot
	Stats() link.Stats
	EnsureConnected() bool
}

// Dispatcher turns an action name into a device command
type Dispatcher interface {
	Dispatch(action string) (bool, error)
}

// PortLister enumerates the host's serial ports
type PortLister interface {
	List() ([]discovery.Descriptor, error)
}

// Info identifies the running service in health responses
type Info struct {
	App        string
	InstanceID string
	Version    string
}

// Server provides the HTTP API for the device link
type Server struct {
	config *config.ServerConfig
	server *http.Server
	logger *slog.Logger

	listener net.Listener
}

// NewServer creates a new API server
func NewServer(cfg *config.ServerConfig, info Info, device Device, dispatcher Dispatcher, ports PortLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	limit := RateLimit(cfg.RequestsPerMin, cfg.BurstSize)

	mux.Handle("GET /api/health", NewHealthHandler(info, device))
	mux.Handle("GET /api/device/status", NewStatusHandler(device))
	mux.Handle("POST /api/haptic", limit(NewHapticHandler(dispatcher, logger)))
	mux.Handle("POST /api/device/reconnect", limit(NewReconnectHandler(device, logger)))
	mux.Handle("GET /api/ports", NewPortsHandler(ports))
	mux.Handle("GET /metrics", NewMetricsHandler(device))

	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: CORS(cfg.AllowedOrigin)(mux),
			// A send can wait out another caller's settle delay
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listen address and serves in the background. A bind
// failure, such as the port already being taken, is returned.
func (s *Server) Start() error {
	s.logger.Info("Starting API server", "port", s.config.Port)

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.server.Shutdown(ctx)
}
