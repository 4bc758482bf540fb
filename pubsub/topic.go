package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/casualjim/nestq/internal/registry"
	"github.com/casualjim/nestq/pkg/queue"
	"github.com/casualjim/nestq/pkg/slogx"
)

type topic[T any] struct {
	name          string
	broker        *localBroker[T]
	queue         *queue.Bounded[T]
	log           *slog.Logger
	subscriptions registry.Registry[*subscription[T]]

	mu        sync.Mutex
	producers int
	stopOnce  sync.Once
}

// newTopic must stay free of side effects: concurrent lookups of a new name may build more than one topic
// and keep only the first.
func newTopic[T any](b *localBroker[T], name string, capacity int) *topic[T] {
	return &topic[T]{
		name:          name,
		broker:        b,
		queue:         queue.MustNew[T](capacity),
		log:           b.log.With(slogx.Topic(name)),
		subscriptions: registry.New[*subscription[T]](),
	}
}

func (t *topic[T]) Name() string {
	return t.name
}

func (t *topic[T]) Publish(ctx context.Context, value T) error {
	ok, err := t.queue.EnqueueContext(ctx, value)
	if err != nil {
		return err
	}
	if !ok {
		t.log.Debug("dropped value published after stop")
		return fmt.Errorf("%w: %s", ErrStopped, t.name)
	}
	return nil
}

func (t *topic[T]) Subscribe(ctx context.Context, handler Handler[T]) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	return t.subscribe(ctx, handler, nil), nil
}

func (t *topic[T]) SubscribeStream(ctx context.Context, handler StreamHandler[T]) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	return t.subscribe(ctx, nil, handler), nil
}

func (t *topic[T]) Producer(_ context.Context) (Producer[T], error) {
	t.mu.Lock()
	t.producers++
	live := t.producers
	t.mu.Unlock()

	t.log.Debug("producer registered", slog.Int("producers", live))
	return &producer[T]{topic: t}, nil
}

// release counts one producer down and stops the topic when none are left.
func (t *topic[T]) release() {
	t.mu.Lock()
	t.producers--
	live := t.producers
	t.mu.Unlock()

	t.log.Debug("producer done", slog.Int("producers", live))
	if live == 0 {
		t.Stop()
	}
}

func (t *topic[T]) Stop() {
	t.queue.Stop()
	t.stopOnce.Do(func() {
		t.log.Info("topic stopped",
			slogx.Stringer("state", t.queue.State()),
			slog.Int("buffered", t.queue.Len()),
			slog.Int("subscriptions", t.subscriptions.Len()),
		)
	})
}

func (t *topic[T]) Stopped() bool {
	return !t.queue.IsRunning()
}

func (t *topic[T]) Len() int {
	return t.queue.Len()
}

func (t *topic[T]) Cap() int {
	return t.queue.Cap()
}

func (t *topic[T]) State() queue.State {
	return t.queue.State()
}
