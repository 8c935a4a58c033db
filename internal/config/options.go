// Package config implements the command-line and file configuration layer
// for the mongtap server, in the shape of the mongo-tools common/options
// package: a flat options struct parsed by go-flags, with a YAML file
// layer underneath it that flags override.
package config

import (
	"os"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mongtap/mongtap/internal/logging"
)

// ServerOptions holds every tunable of the mongtap front end.
type ServerOptions struct {
	Help    bool `long:"help" description:"print usage"`
	Version bool `long:"version" description:"print the version and exit"`

	ConfigPath string `long:"config" value-name:"<path>" description:"path to a YAML configuration file"`

	Host string `short:"h" long:"host" default:"127.0.0.1" value-name:"<hostname>" description:"address to listen on"`
	Port int    `long:"port" default:"27017" value-name:"<port>" description:"wire-protocol port to listen on"`

	DBPath string `long:"dbpath" default:"./data" value-name:"<path>" description:"base directory for per-collection model files"`

	Verbose []bool `short:"v" long:"verbose" description:"increase logging verbosity (repeatable)"`
	Quiet   bool   `long:"quiet" description:"suppress all log output"`

	MaxCursors        int `long:"maxCursors" default:"1000" description:"maximum number of live server-side cursors"`
	CursorTimeoutSecs int `long:"cursorTimeout" default:"600" description:"idle cursor eviction timeout, in seconds"`
	CursorBufferSize  int `long:"cursorBufferSize" default:"1000" description:"documents pulled from the collection per cursor refill"`

	ModelCacheSize int `long:"modelCacheSize" default:"100" description:"maximum number of in-memory models held by the storage LRU cache"`

	TrainThreshold int `long:"trainThreshold" default:"10" description:"pending documents buffered before a collection (re)trains its model"`

	AggregationLimit int `long:"aggregationLimit" default:"100000" description:"maximum intermediate document count for any aggregation stage"`

	SurrogateCount int64 `long:"surrogateCount" default:"100" description:"constant returned by count() when a model exists (see spec §9(c))"`

	// parser retains the go-flags parser so callers can print usage.
	parser *flags.Parser
}

// Verbosity implements logging.VerbosityLevel-shaped access used by the
// logger: repeated -v flags raise the level, --quiet forces silence.
func (o *ServerOptions) Verbosity() int {
	if o.Quiet {
		return -1
	}
	return len(o.Verbose)
}

// Default returns a ServerOptions populated with the same defaults
// go-flags would assign, for use by tests and embedders that skip
// ParseArgs.
func Default() *ServerOptions {
	return &ServerOptions{
		Host:              "127.0.0.1",
		Port:              27017,
		DBPath:            "./data",
		MaxCursors:        1000,
		CursorTimeoutSecs: 600,
		CursorBufferSize:  1000,
		ModelCacheSize:    100,
		TrainThreshold:    10,
		AggregationLimit:  100000,
		SurrogateCount:    100,
	}
}

// ParseArgs parses args (typically os.Args[1:]) into a ServerOptions,
// first loading --config (if present) as a YAML base layer that explicit
// flags then override.
func ParseArgs(appName string, args []string) (*ServerOptions, error) {
	opts := Default()
	opts.parser = flags.NewNamedParser(appName, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := opts.parser.AddGroup("options", "", opts); err != nil {
		return nil, errors.Wrap(err, "config: registering flags")
	}

	// A first pass just to discover --config before the real parse, mirroring
	// common/options' two-phase URI/flag precedence handling.
	preScan := *opts
	preParser := flags.NewNamedParser(appName, flags.IgnoreUnknown)
	if _, err := preParser.AddGroup("options", "", &preScan); err != nil {
		return nil, errors.Wrap(err, "config: pre-scan flags")
	}
	_, _ = preParser.ParseArgs(args)
	if preScan.ConfigPath != "" {
		if err := loadYAMLInto(preScan.ConfigPath, opts); err != nil {
			return nil, err
		}
	}

	extra, err := opts.parser.ParseArgs(args)
	if err != nil {
		return nil, errors.Wrap(err, "config: parsing arguments")
	}
	if len(extra) > 0 {
		return nil, errors.Errorf("config: unrecognized arguments: %v", extra)
	}
	return opts, nil
}

// LoadYAML decodes the YAML file at path into a fresh ServerOptions seeded
// with Default(), for embedders (such as cmd/mongtapd) that parse their own
// flag surface but still want the file+flag layering common/options gives
// the mongo-tools binaries.
func LoadYAML(path string) (*ServerOptions, error) {
	opts := Default()
	if err := loadYAMLInto(path, opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// loadYAMLInto decodes the YAML file at path over dst's current values.
func loadYAMLInto(path string, dst *ServerOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "config: opening %s", path)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(err, "config: parsing %s", path)
	}
	return nil
}

// NewLogger builds a logging.Logger reflecting the parsed verbosity.
func (o *ServerOptions) NewLogger() *logging.Logger {
	return logging.New(o.Verbosity())
}

// PrintUsage writes the flag usage text for this parser, if ParseArgs built
// one.
func (o *ServerOptions) PrintUsage() string {
	if o.parser == nil {
		return ""
	}
	return o.parser.Usage("")
}
