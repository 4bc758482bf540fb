package nestq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/casualjim/nestq/pkg/slogx"
	"github.com/casualjim/nestq/pubsub"
	"github.com/fogfish/opts"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DefaultTopic is the topic a pipeline uses unless Topic is given.
const DefaultTopic = "tasks"

// ErrNoConsumers is returned by Run when every consumer exited while producers still had input to publish.
var ErrNoConsumers = errors.New("every consumer exited before the input was exhausted")

// Config is the configuration of a Pipeline.
type Config struct {
	topic     string
	producers int
	consumers int
	logger    *slog.Logger
}

type Option = opts.Option[Config]

var (
	// Topic names the broker topic the pipeline publishes to and consumes from.
	Topic = opts.ForName[Config, string]("topic")
	// Producers sets the number of producer goroutines. Defaults to 1.
	Producers = opts.ForName[Config, int]("producers")
	// Consumers sets the number of subscriptions. Defaults to 1.
	Consumers = opts.ForName[Config, int]("consumers")
	// Logger sets the pipeline logger. Defaults to slog.Default().
	Logger = opts.ForName[Config, *slog.Logger]("logger")
)

// Stats summarises one Run.
type Stats struct {
	Topic     string        `json:"topic"`
	Published int64         `json:"published"`
	Delivered int64         `json:"delivered"`
	Dropped   int64         `json:"dropped"`
	Producers int           `json:"producers"`
	Consumers int           `json:"consumers"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// Pipeline connects a Source to a Handler through one broker topic.
type Pipeline[T any] struct {
	cfg Config
	log *slog.Logger
}

// New validates options and returns a pipeline ready to Run.
func New[T any](options ...Option) (*Pipeline[T], error) {
	cfg := Config{
		topic:     DefaultTopic,
		producers: 1,
		consumers: 1,
	}
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, err
	}
	switch {
	case cfg.topic == "":
		return nil, pubsub.ErrEmptyTopic
	case cfg.producers < 1:
		return nil, fmt.Errorf("producers must be at least 1, got %d", cfg.producers)
	case cfg.consumers < 1:
		return nil, fmt.Errorf("consumers must be at least 1, got %d", cfg.consumers)
	}

	return &Pipeline[T]{
		cfg: cfg,
		log: slogx.Component(cfg.logger, "pipeline").With(slogx.Topic(cfg.topic)),
	}, nil
}

// Run starts the consumers, then the producers, and returns once every one of them has exited.
//
// All producers read from src through Synchronized. Each producer counts itself down on the topic when src is
// exhausted, so the topic stops after the last one. The first producer failure cancels the others. Consumers
// keep draining the topic until it is empty. When all consumers fail first, the producers are cancelled and
// Run reports ErrNoConsumers.
//
// Stopping is one-way, so a topic serves a single Run. Use a fresh topic name or broker for the next one.
func (p *Pipeline[T]) Run(ctx context.Context, broker pubsub.Broker[T], src Source[T], handler pubsub.Handler[T]) (Stats, error) {
	stats := Stats{
		Topic:     p.cfg.topic,
		Producers: p.cfg.producers,
		Consumers: p.cfg.consumers,
	}
	if src == nil {
		return stats, errors.New("source is required")
	}
	if handler == nil {
		return stats, pubsub.ErrNilHandler
	}
	start := time.Now()

	subs := make([]pubsub.Subscription, 0, p.cfg.consumers)
	for range p.cfg.consumers {
		sub, err := broker.Subscribe(ctx, p.cfg.topic, handler)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			return stats, fmt.Errorf("subscribe: %w", err)
		}
		subs = append(subs, sub)
	}

	handles := make([]pubsub.Producer[T], 0, p.cfg.producers)
	for range p.cfg.producers {
		h, err := broker.Producer(ctx, p.cfg.topic)
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			for _, h := range handles {
				h.Done()
			}
			return stats, fmt.Errorf("register producer: %w", err)
		}
		handles = append(handles, h)
	}

	p.log.Info("pipeline started", slog.Int("producers", p.cfg.producers), slog.Int("consumers", p.cfg.consumers))

	var published, dropped, active atomic.Int64
	active.Store(int64(len(handles)))
	shared := Synchronized(src)
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		g.Go(func() error {
			defer h.Done()
			defer active.Add(-1)
			return p.produce(gctx, i, h, shared, &published, &dropped)
		})
	}
	g.Go(func() error {
		for _, s := range subs {
			<-s.Done()
		}
		if active.Load() > 0 && ctx.Err() == nil && !broker.HasStoppedPublishing(ctx, p.cfg.topic) {
			return ErrNoConsumers
		}
		return nil
	})
	err := g.Wait()

	// subscriptions are bound to ctx, so they exit on their own when it ends
	for _, s := range subs {
		<-s.Done()
		if serr := s.Err(); serr != nil {
			err = multierr.Append(err, fmt.Errorf("subscription %s: %w", s.ID(), serr))
		}
		stats.Delivered += s.Delivered()
	}

	stats.Published = published.Load()
	stats.Dropped = dropped.Load()
	stats.Elapsed = time.Since(start)

	attrs := []any{
		slog.Int64("published", stats.Published),
		slog.Int64("delivered", stats.Delivered),
		slog.Int64("dropped", stats.Dropped),
		slog.Duration("elapsed", stats.Elapsed),
	}
	if err != nil {
		p.log.Error("pipeline failed", append(attrs, slogx.Error(err))...)
		return stats, err
	}
	p.log.Info("pipeline finished", attrs...)
	return stats, nil
}

func (p *Pipeline[T]) produce(ctx context.Context, id int, h pubsub.Producer[T], src Source[T], published, dropped *atomic.Int64) error {
	log := p.log.With(slog.Int("producer", id))

	for {
		v, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Debug("source exhausted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("producer %d: read: %w", id, err)
		}

		if err := h.Publish(ctx, v); err != nil {
			if errors.Is(err, pubsub.ErrStopped) {
				dropped.Add(1)
				log.Warn("topic stopped before input was exhausted")
				return nil
			}
			return fmt.Errorf("producer %d: publish: %w", id, err)
		}
		published.Add(1)
	}
}
