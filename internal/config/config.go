// Package config resolves the settings of the nestq command from defaults, .env files, the environment and
// command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/casualjim/nestq/pkg/geo"
	"github.com/casualjim/nestq/pkg/graph"
	"github.com/casualjim/nestq/pkg/queue"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "NESTQ_"

const (
	DefaultProducers  = 2
	DefaultConsumers  = 1
	DefaultCoordTasks = 250
	DefaultGraphs     = 200
)

type Config struct {
	Capacity      int
	Producers     int
	Consumers     int
	LogLevel      string
	CoordsPerTask int
	GraphSize     int
	// Count is the number of tasks or graphs the generators write.
	Count int
	// Seed seeds the generators; 0 picks a time based seed.
	Seed   uint64
	Input  string
	Output string
	JSON   bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Capacity:      queue.DefaultCapacity,
		Producers:     DefaultProducers,
		Consumers:     DefaultConsumers,
		LogLevel:      "info",
		CoordsPerTask: geo.DefaultCandidates,
		GraphSize:     graph.DefaultSize,
	}
}

// Load applies the given .env files (".env" when none are named) and then the NESTQ_* environment variables
// on top of Default. Missing .env files are skipped. Variables already set in the environment win over the
// files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	c := Default()
	var err error
	c.Capacity, err = envInt("CAPACITY", c.Capacity)
	if err != nil {
		return Config{}, err
	}
	c.Producers, err = envInt("PRODUCERS", c.Producers)
	if err != nil {
		return Config{}, err
	}
	c.Consumers, err = envInt("CONSUMERS", c.Consumers)
	if err != nil {
		return Config{}, err
	}
	c.CoordsPerTask, err = envInt("COORDS_PER_TASK", c.CoordsPerTask)
	if err != nil {
		return Config{}, err
	}
	c.GraphSize, err = envInt("GRAPH_SIZE", c.GraphSize)
	if err != nil {
		return Config{}, err
	}
	c.Count, err = envInt("COUNT", c.Count)
	if err != nil {
		return Config{}, err
	}
	if s := envStrOrDefault("SEED", ""); s != "" {
		if c.Seed, err = strconv.ParseUint(strings.TrimSpace(s), 10, 64); err != nil {
			return Config{}, fmt.Errorf("config: %sSEED: %w", EnvPrefix, err)
		}
	}
	c.LogLevel = envStrOrDefault("LOG_LEVEL", c.LogLevel)
	c.Input = envStrOrDefault("INPUT", c.Input)
	c.Output = envStrOrDefault("OUTPUT", c.Output)
	return c, nil
}

// RegisterFlags binds the settings to fs, using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Capacity, "capacity", c.Capacity, "bound of the topic queue")
	fs.IntVar(&c.Producers, "producers", c.Producers, "number of producer goroutines")
	fs.IntVar(&c.Consumers, "consumers", c.Consumers, "number of consumer goroutines")
	fs.IntVar(&c.CoordsPerTask, "coords", c.CoordsPerTask, "candidate points per coordinate task")
	fs.IntVar(&c.GraphSize, "graph-size", c.GraphSize, "adjacency lines per graph")
	fs.IntVar(&c.Count, "count", c.Count, "number of tasks or graphs to generate")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "generator seed, 0 for a time based one")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.Input, "in", c.Input, "input file")
	fs.StringVar(&c.Output, "out", c.Output, "output file")
	fs.BoolVar(&c.JSON, "json", c.JSON, "print the run summary as JSON")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	positive("capacity", c.Capacity)
	positive("producers", c.Producers)
	positive("consumers", c.Consumers)
	positive("coords per task", c.CoordsPerTask)
	positive("graph size", c.GraphSize)
	if c.Count < 0 {
		errs = append(errs, fmt.Errorf("count must not be negative, got %d", c.Count))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", multierr.Combine(errs...))
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// InputOr returns Input, or def when it is unset.
func (c Config) InputOr(def string) string {
	if c.Input == "" {
		return def
	}
	return c.Input
}

// OutputOr returns Output, or def when it is unset.
func (c Config) OutputOr(def string) string {
	if c.Output == "" {
		return def
	}
	return c.Output
}

// CountOr returns Count, or def when it is unset.
func (c Config) CountOr(def int) int {
	if c.Count == 0 {
		return def
	}
	return c.Count
}

func envStrOrDefault(key string, def string) string {
	s := os.Getenv(EnvPrefix + key)
	if s == "" {
		return def
	}
	return s
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(EnvPrefix + key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
	}
	return v, nil
}
