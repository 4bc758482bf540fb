package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casualjim/nestq/internal/registry"
	"github.com/casualjim/nestq/pkg/slogx"
	"go.uber.org/multierr"
)

var (
	_ Broker[any] = (*localBroker[any])(nil)
	_ Topic[any]  = (*topic[any])(nil)
)

type localBroker[T any] struct {
	cfg    Config
	log    *slog.Logger
	topics registry.Registry[*topic[T]]

	mu   sync.Mutex
	errs error
}

// Local creates an in-process broker. Each call returns an independent broker with its own topics.
func Local[T any](options ...Option) (Broker[T], error) {
	cfg, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	return &localBroker[T]{
		cfg:    cfg,
		log:    slogx.Component(cfg.logger, "pubsub"),
		topics: registry.New[*topic[T]](),
	}, nil
}

func (b *localBroker[T]) Topic(_ context.Context, name string) (Topic[T], error) {
	return b.topic(name)
}

func (b *localBroker[T]) topic(name string) (*topic[T], error) {
	if name == "" {
		return nil, ErrEmptyTopic
	}
	if t, ok := b.topics.Get(name); ok {
		return t, nil
	}
	t, loaded := b.topics.GetOrAdd(name, func() *topic[T] {
		return newTopic(b, name, b.cfg.capacityOf(name))
	})
	if !loaded {
		t.log.Debug("topic created", slog.Int("capacity", t.Cap()))
	}
	return t, nil
}

func (b *localBroker[T]) Publish(ctx context.Context, name string, value T) error {
	t, err := b.topic(name)
	if err != nil {
		return err
	}
	return t.Publish(ctx, value)
}

func (b *localBroker[T]) Subscribe(ctx context.Context, name string, handler Handler[T]) (Subscription, error) {
	t, err := b.topic(name)
	if err != nil {
		return nil, err
	}
	return t.Subscribe(ctx, handler)
}

func (b *localBroker[T]) SubscribeStream(ctx context.Context, name string, handler StreamHandler[T]) (Subscription, error) {
	t, err := b.topic(name)
	if err != nil {
		return nil, err
	}
	return t.SubscribeStream(ctx, handler)
}

func (b *localBroker[T]) Producer(ctx context.Context, name string) (Producer[T], error) {
	t, err := b.topic(name)
	if err != nil {
		return nil, err
	}
	return t.Producer(ctx)
}

func (b *localBroker[T]) StopPublishing(_ context.Context, name string) error {
	t, err := b.topic(name)
	if err != nil {
		return err
	}
	t.Stop()
	return nil
}

func (b *localBroker[T]) HasStoppedPublishing(_ context.Context, name string) bool {
	t, err := b.topic(name)
	if err != nil {
		return false
	}
	return t.Stopped()
}

func (b *localBroker[T]) Topics() []string {
	return b.topics.Names()
}

func (b *localBroker[T]) Wait(ctx context.Context) error {
	for {
		pending := b.running()
		if len(pending) == 0 {
			break
		}
		for _, sub := range pending {
			select {
			case <-sub.done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errs
}

func (b *localBroker[T]) Close(ctx context.Context) error {
	b.topics.Each(func(_ string, t *topic[T]) bool {
		t.Stop()
		return true
	})
	return b.Wait(ctx)
}

// running snapshots the subscriptions whose workers have not exited yet.
func (b *localBroker[T]) running() []*subscription[T] {
	var subs []*subscription[T]
	b.topics.Each(func(_ string, t *topic[T]) bool {
		t.subscriptions.Each(func(_ string, s *subscription[T]) bool {
			subs = append(subs, s)
			return true
		})
		return true
	})
	return subs
}

func (b *localBroker[T]) recordErr(sub *subscription[T], err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = multierr.Append(b.errs, fmt.Errorf("topic %s: subscription %s: %w", sub.topic.name, sub.id, err))
}
