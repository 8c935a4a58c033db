// Command mongtapd is the thin wiring binary for the mongtap server: it
// parses flags, constructs the storage layer, collection registry, cursor
// manager, and front end, then serves until interrupted.
//
// The flag surface is expressed with urfave/cli/v2, the teacher's alternate
// CLI parser beside go-flags, but every flag value is folded into an
// internal/config.ServerOptions before anything is constructed, so the
// go-flags-shaped options struct (and its --config YAML layer) stays the
// single source of truth for defaults regardless of which parser read them.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mongtap/mongtap/internal/config"
	"github.com/mongtap/mongtap/internal/logging"
	"github.com/mongtap/mongtap/internal/server"
	"github.com/mongtap/mongtap/internal/storage"
)

func main() {
	defaults := config.Default()
	app := &cli.App{
		Name:  "mongtapd",
		Usage: "a MongoDB-wire-compatible server backed by synthetic data models",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML configuration file, overridden by any flag below"},
			&cli.StringFlag{Name: "host", Value: defaults.Host, Usage: "address to listen on"},
			&cli.IntFlag{Name: "port", Value: defaults.Port, Usage: "wire-protocol port to listen on"},
			&cli.StringFlag{Name: "dbpath", Value: defaults.DBPath, Usage: "base directory for per-collection model files"},
			&cli.IntFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "logging verbosity level (0-3)"},
			&cli.IntFlag{Name: "maxCursors", Value: defaults.MaxCursors, Usage: "maximum number of live server-side cursors"},
			&cli.IntFlag{Name: "cursorTimeout", Value: defaults.CursorTimeoutSecs, Usage: "idle cursor eviction timeout, in seconds"},
			&cli.IntFlag{Name: "cursorBufferSize", Value: defaults.CursorBufferSize, Usage: "documents pulled from the collection per cursor refill"},
			&cli.IntFlag{Name: "modelCacheSize", Value: defaults.ModelCacheSize, Usage: "maximum number of in-memory models held by the storage LRU cache"},
			&cli.IntFlag{Name: "trainThreshold", Value: defaults.TrainThreshold, Usage: "pending documents buffered before a collection (re)trains its model"},
			&cli.IntFlag{Name: "aggregationLimit", Value: defaults.AggregationLimit, Usage: "maximum intermediate document count for any aggregation stage"},
			&cli.IntFlag{Name: "surrogateCount", Value: int(defaults.SurrogateCount), Usage: "constant returned by count() when a model exists"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "mongtapd:", err)
		os.Exit(1)
	}
}

// run folds the parsed cli.Context into an internal/config.ServerOptions —
// starting from a --config YAML file when given, then applying every flag
// the user actually set on top — before handing it to the storage and
// server layers.
func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadYAML(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	for _, name := range c.FlagNames() {
		if !c.IsSet(name) {
			continue
		}
		switch name {
		case "host":
			cfg.Host = c.String(name)
		case "port":
			cfg.Port = c.Int(name)
		case "dbpath":
			cfg.DBPath = c.String(name)
		case "verbose":
			n := c.Int(name)
			cfg.Verbose = make([]bool, n)
		case "maxCursors":
			cfg.MaxCursors = c.Int(name)
		case "cursorTimeout":
			cfg.CursorTimeoutSecs = c.Int(name)
		case "cursorBufferSize":
			cfg.CursorBufferSize = c.Int(name)
		case "modelCacheSize":
			cfg.ModelCacheSize = c.Int(name)
		case "trainThreshold":
			cfg.TrainThreshold = c.Int(name)
		case "aggregationLimit":
			cfg.AggregationLimit = c.Int(name)
		case "surrogateCount":
			cfg.SurrogateCount = int64(c.Int(name))
		}
	}

	logger := cfg.NewLogger()

	store, err := storage.New(cfg.DBPath, cfg.ModelCacheSize, logger)
	if err != nil {
		return err
	}

	opts := server.Options{
		MaxCursors:       cfg.MaxCursors,
		CursorTimeout:    time.Duration(cfg.CursorTimeoutSecs) * time.Second,
		CursorBufferSize: cfg.CursorBufferSize,
		TrainThreshold:   cfg.TrainThreshold,
		SurrogateCount:   int(cfg.SurrogateCount),
		AggregationLimit: cfg.AggregationLimit,
		SweepInterval:    time.Minute,
	}
	srv := server.New(store, opts, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sig:
		logger.Logf(logging.Always, "mongtapd: shutting down")
		return srv.Close()
	}
}
