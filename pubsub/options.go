package pubsub

import (
	"fmt"
	"log/slog"

	"github.com/casualjim/nestq/pkg/queue"
	"github.com/fogfish/opts"
)

// Config holds the settings of a broker. It is built from options passed to Local.
type Config struct {
	capacity   int
	capacities map[string]int
	logger     *slog.Logger
}

type Option = opts.Option[Config]

var (
	// Capacity sets the bound of every topic queue without a per-topic override. Defaults to
	// queue.DefaultCapacity.
	Capacity = opts.ForName[Config, int]("capacity")

	// Logger sets the logger for broker events. Defaults to slog.Default().
	Logger = opts.ForName[Config, *slog.Logger]("logger")
)

// TopicCapacity overrides the queue bound for one topic.
func TopicCapacity(name string, capacity int) Option {
	return opts.Type[Config](func(c *Config) error {
		if name == "" {
			return ErrEmptyTopic
		}
		if c.capacities == nil {
			c.capacities = make(map[string]int)
		}
		c.capacities[name] = capacity
		return nil
	})
}

func newConfig(options []Option) (Config, error) {
	cfg := Config{capacity: queue.DefaultCapacity}
	if err := opts.Apply(&cfg, options); err != nil {
		return Config{}, err
	}
	if cfg.capacity <= 0 {
		return Config{}, fmt.Errorf("%w: got %d", queue.ErrInvalidCapacity, cfg.capacity)
	}
	for name, c := range cfg.capacities {
		if c <= 0 {
			return Config{}, fmt.Errorf("%w: topic %q got %d", queue.ErrInvalidCapacity, name, c)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg, nil
}

func (c Config) capacityOf(name string) int {
	if n, ok := c.capacities[name]; ok {
		return n
	}
	return c.capacity
}
