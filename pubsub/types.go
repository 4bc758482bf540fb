package pubsub

import (
	"context"

	"github.com/casualjim/nestq/pkg/queue"
)

// Handler consumes one value taken from a topic. A non-nil error ends the subscription that called it.
type Handler[T any] func(ctx context.Context, value T) error

// StreamHandler is a Handler that also observes end-of-stream: after the last value it is called exactly once
// more with ok set to false and the zero value of T.
type StreamHandler[T any] func(ctx context.Context, value T, ok bool) error

type Broker[T any] interface {
	// Topic returns the topic registered under name, creating it on first use.
	Topic(ctx context.Context, name string) (Topic[T], error)
	// Publish waits for room on the named topic and enqueues value. It returns an error wrapping ErrStopped
	// when the topic stopped before the value could be added.
	Publish(ctx context.Context, name string, value T) error
	Subscribe(ctx context.Context, name string, handler Handler[T]) (Subscription, error)
	SubscribeStream(ctx context.Context, name string, handler StreamHandler[T]) (Subscription, error)
	// Producer registers one more publisher on the named topic.
	Producer(ctx context.Context, name string) (Producer[T], error)
	StopPublishing(ctx context.Context, name string) error
	HasStoppedPublishing(ctx context.Context, name string) bool
	// Topics lists the names of every materialized topic in lexical order.
	Topics() []string
	// Wait blocks until every subscription worker has finished and returns their joined errors.
	Wait(ctx context.Context) error
	// Close stops every topic, then waits like Wait.
	Close(ctx context.Context) error
}

type Topic[T any] interface {
	Name() string
	Publish(ctx context.Context, value T) error
	Subscribe(ctx context.Context, handler Handler[T]) (Subscription, error)
	SubscribeStream(ctx context.Context, handler StreamHandler[T]) (Subscription, error)
	Producer(ctx context.Context) (Producer[T], error)
	Stop()
	Stopped() bool
	Len() int
	Cap() int
	State() queue.State
}

type Subscription interface {
	ID() string
	Topic() string
	// Done is closed once the worker has exited.
	Done() <-chan struct{}
	// Err returns the reason the worker exited, nil for end-of-stream or Unsubscribe.
	// It is only meaningful after Done is closed.
	Err() error
	// Delivered counts the values handed to the handler successfully.
	Delivered() int64
	Unsubscribe()
}

type Producer[T any] interface {
	Publish(ctx context.Context, value T) error
	// Done releases the producer. The topic stops once every registered producer is done.
	Done()
}
