package nestq

import (
	"context"
	"io"
	"sync"
)

// Source produces payloads. Next returns io.EOF once there is no more input.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc[T any] func(ctx context.Context) (T, error)

func (f SourceFunc[T]) Next(ctx context.Context) (T, error) {
	return f(ctx)
}

// Slice returns a source that yields values in order.
func Slice[T any](values ...T) Source[T] {
	i := 0
	return SourceFunc[T](func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if i >= len(values) {
			return zero, io.EOF
		}
		v := values[i]
		i++
		return v, nil
	})
}

// Synchronized makes src safe to share between goroutines. Once src has returned an error, including io.EOF,
// every later call returns that same error without touching src again.
func Synchronized[T any](src Source[T]) Source[T] {
	if s, ok := src.(*syncSource[T]); ok {
		return s
	}
	return &syncSource[T]{src: src}
}

type syncSource[T any] struct {
	mu  sync.Mutex
	src Source[T]
	err error
}

func (s *syncSource[T]) Next(ctx context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if s.err != nil {
		return zero, s.err
	}
	v, err := s.src.Next(ctx)
	if err != nil {
		// a cancelled caller must not poison the source for the others
		if ctx.Err() == nil {
			s.err = err
		}
		return zero, err
	}
	return v, nil
}
