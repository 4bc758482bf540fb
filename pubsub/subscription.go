package pubsub

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/casualjim/nestq/pkg/slogx"
	"github.com/google/uuid"
)

func (t *topic[T]) subscribe(ctx context.Context, handler Handler[T], stream StreamHandler[T]) *subscription[T] {
	id := uuid.Must(uuid.NewV7()).String()
	sctx, cancel := context.WithCancelCause(ctx)
	sub := &subscription[T]{
		id:      id,
		topic:   t,
		ctx:     sctx,
		cancel:  cancel,
		handler: handler,
		stream:  stream,
		done:    make(chan struct{}),
		log:     t.log.With(slogx.Subscription(id)),
	}
	t.subscriptions.Add(id, sub)
	go sub.run()
	return sub
}

type subscription[T any] struct {
	id        string
	topic     *topic[T]
	ctx       context.Context
	cancel    context.CancelCauseFunc
	handler   Handler[T]
	stream    StreamHandler[T]
	done      chan struct{}
	err       error
	delivered atomic.Int64
	log       *slog.Logger
}

func (s *subscription[T]) ID() string {
	return s.id
}

func (s *subscription[T]) Topic() string {
	return s.topic.name
}

func (s *subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *subscription[T]) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *subscription[T]) Delivered() int64 {
	return s.delivered.Load()
}

func (s *subscription[T]) Unsubscribe() {
	s.cancel(errUnsubscribed)
}

func (s *subscription[T]) run() {
	s.log.Debug("subscription started")
	s.finish(s.consume())
}

// consume takes values until end-of-stream, a handler failure or cancellation. End-of-stream never reaches a
// plain Handler. A cancelled worker takes nothing more, even while values are buffered, so they stay with the
// other consumers.
func (s *subscription[T]) consume() error {
	for {
		if s.ctx.Err() != nil {
			return s.interrupted()
		}
		value, ok, err := s.topic.queue.DequeueContext(s.ctx)
		if err != nil {
			return s.interrupted()
		}
		if !ok {
			if s.stream != nil {
				return s.stream(s.ctx, value, false)
			}
			return nil
		}

		if s.handler != nil {
			err = s.handler(s.ctx, value)
		} else {
			err = s.stream(s.ctx, value, true)
		}
		if err != nil {
			return err
		}
		s.delivered.Add(1)
	}
}

// interrupted maps the end of the worker's context to its exit error: nil after Unsubscribe, the parent's
// cause otherwise.
func (s *subscription[T]) interrupted() error {
	cause := context.Cause(s.ctx)
	if errors.Is(cause, errUnsubscribed) {
		return nil
	}
	return cause
}

func (s *subscription[T]) finish(err error) {
	s.err = err
	if err != nil {
		s.log.Error("subscription failed", slogx.Error(err), slog.Int64("delivered", s.Delivered()))
		s.topic.broker.recordErr(s, err)
	} else {
		s.log.Debug("subscription finished", slog.Int64("delivered", s.Delivered()))
	}
	s.topic.subscriptions.Del(s.id)
	s.cancel(errUnsubscribed)
	close(s.done)
}
