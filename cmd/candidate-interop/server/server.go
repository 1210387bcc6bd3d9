// Package server provides an importable HTTP server for ICE candidate interop
// testing. This allows e2e tests to programmatically start/stop the server
// without running main().
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/thesyncim/candidateparser/pkg/ffi"
)

// Config holds server configuration options.
type Config struct {
	Addr          string        // Listen address (e.g., ":8080" or ":0" for random port)
	ReadTimeout   time.Duration // HTTP read timeout
	WriteTimeout  time.Duration // HTTP write timeout
	GatherTimeout time.Duration // Limit for local candidate gathering in /local

	// LoggerFactory creates the server and marshaller loggers.
	// Default: logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory
}

// DefaultConfig returns a configuration suitable for testing.
// Uses ":0" to bind to a random available port.
func DefaultConfig() Config {
	return Config{
		Addr:          ":0",
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		GatherTimeout: 10 * time.Second,
	}
}

// Server is an importable HTTP server that parses ICE candidates posted by
// browsers or gathered locally.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	mu         sync.Mutex
	running    bool

	marshaller    *ffi.Marshaller
	allocs        *ffi.CountingAllocator
	gatherTimeout time.Duration
	log           logging.LeveledLogger
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg Config) (*Server, error) {
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if cfg.GatherTimeout <= 0 {
		return nil, errors.New("gather timeout must be positive")
	}

	allocs := ffi.NewCountingAllocator(ffi.CHeap{})
	marshaller, err := ffi.NewMarshaller(
		ffi.WithAllocator(allocs),
		ffi.WithLoggerFactory(cfg.LoggerFactory),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create marshaller: %w", err)
	}

	s := &Server{
		marshaller:    marshaller,
		allocs:        allocs,
		gatherTimeout: cfg.GatherTimeout,
		log:           cfg.LoggerFactory.NewLogger("interop"),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Serve HTML page at root
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(HTMLPage))
	})

	mux.HandleFunc("/candidate", s.HandleCandidate)
	mux.HandleFunc("/sdp", s.HandleSessionDescription)
	mux.HandleFunc("/local", s.HandleLocal)
	return mux
}

// Start begins listening and serving HTTP requests.
// Returns the actual address the server is listening on (useful when port is 0).
// This method is non-blocking - the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	// Create listener to get actual port
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = ln
	s.addr = ln.Addr().String()
	s.running = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("serve: %v", err)
		}
	}()

	return s.addr, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Allocations returns the marshaller's allocation counters. Live is zero
// whenever no request is in flight.
func (s *Server) Allocations() ffi.AllocStats {
	return s.allocs.Stats()
}
