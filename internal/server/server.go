// Package server is the composition root described in SPEC_FULL.md §4.12:
// it owns the TCP listener, one goroutine per connection (spec §5's
// "parallel threads of execution" model), the command dispatcher, and the
// per-database/collection registry.
package server

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/mongtap/mongtap/internal/collection"
	"github.com/mongtap/mongtap/internal/cursor"
	"github.com/mongtap/mongtap/internal/logging"
	"github.com/mongtap/mongtap/internal/storage"
)

// Options tunes the server's cursor/aggregation/collection behavior,
// mirroring internal/config.ServerOptions without importing it directly (so
// internal/server stays usable without the CLI layer).
type Options struct {
	MaxCursors       int
	CursorTimeout    time.Duration
	CursorBufferSize int
	TrainThreshold   int
	SurrogateCount   int
	AggregationLimit int
	SweepInterval    time.Duration
}

// DefaultOptions mirrors internal/config's defaults.
func DefaultOptions() Options {
	return Options{
		MaxCursors:       1000,
		CursorTimeout:    10 * time.Minute,
		CursorBufferSize: 1000,
		TrainThreshold:   10,
		SurrogateCount:   100,
		AggregationLimit: 100000,
		SweepInterval:    time.Minute,
	}
}

// Server is the running mongtap front end.
type Server struct {
	opts     Options
	logger   *logging.Logger
	store    *storage.Store
	registry *Registry
	cursors  *cursor.Manager

	listener net.Listener
}

// New constructs a Server around store, ready to Serve once a listener is
// attached.
func New(store *storage.Store, opts Options, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default
	}
	colOpts := collection.DefaultOptions()
	if opts.TrainThreshold > 0 {
		colOpts.TrainThreshold = opts.TrainThreshold
	}
	if opts.SurrogateCount > 0 {
		colOpts.SurrogateCount = opts.SurrogateCount
	}

	return &Server{
		opts:     opts,
		logger:   logger,
		store:    store,
		registry: NewRegistry(store, colOpts, logger),
		cursors: cursor.NewManager(cursor.ManagerOptions{
			MaxPopulation: opts.MaxCursors,
			Timeout:       opts.CursorTimeout,
			SweepInterval: opts.SweepInterval,
			BufferSize:    opts.CursorBufferSize,
		}),
	}
}

// ListenAndServe binds addr and serves connections until the listener is
// closed or an unrecoverable accept error occurs.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "server: listening on %s", addr)
	}
	return s.Serve(l)
}

// Serve accepts connections from l, spawning one goroutine per connection,
// until l is closed.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	s.logger.Logf(logging.Always, "server: listening on %s", l.Addr())

	go s.sweepLoop()

	for {
		raw, err := l.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(raw)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) sweepLoop() {
	interval := s.opts.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		n := s.cursors.Sweep(time.Now())
		if n > 0 {
			s.logger.Logf(logging.DebugLow, "server: swept %d idle cursors", n)
		}
	}
}
