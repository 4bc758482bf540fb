package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
)

type producer[T any] struct {
	topic *topic[T]
	done  atomic.Bool
	once  sync.Once
}

func (p *producer[T]) Publish(ctx context.Context, value T) error {
	if p.done.Load() {
		return ErrProducerDone
	}
	return p.topic.Publish(ctx, value)
}

func (p *producer[T]) Done() {
	p.once.Do(func() {
		p.done.Store(true)
		p.topic.release()
	})
}
