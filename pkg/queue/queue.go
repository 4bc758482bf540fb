// Package queue implements a bounded, blocking FIFO queue shared by concurrent producers and consumers.
//
// Producers wait on notFull, consumers wait on notEmpty; both conditions share one mutex.
// A full queue suspends Enqueue and an empty one suspends Dequeue. Stop is one-way: buffered values are
// still served, and after the last one every Dequeue reports end-of-stream through its comma-ok result.
// Any value of T, nil and zero values included, is a valid payload.
//
// The *Context variants abort a wait when their context ends. The plain variants only return through the
// complementary operation or Stop.
//
// Lifecycle:
//
//	Running ──Stop──▶ Draining (stopped, values buffered) ──last Dequeue──▶ Drained (terminal)
//
// A queue stopped while empty goes straight to Drained.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/casualjim/nestq/pkg/deque"
)

// DefaultCapacity is the bound used when callers do not pick one.
const DefaultCapacity = 25

// ErrInvalidCapacity is returned when a queue is constructed with a non-positive capacity.
var ErrInvalidCapacity = errors.New("queue: capacity must be positive")

// State describes where a queue is in its lifecycle.
type State int

const (
	// Running accepts and serves values.
	Running State = iota
	// Draining no longer accepts values but still holds some.
	Draining
	// Drained is stopped and empty; every Dequeue reports end-of-stream.
	Drained
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Drained:
		return "drained"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Bounded is a FIFO queue holding at most Cap() values while it is running.
// All methods are safe for concurrent use.
type Bounded[T any] struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond
	items    *deque.Deque[T]
	capacity int
	running  bool
}

// New creates a running queue that holds at most capacity values.
func New[T any](capacity int) (*Bounded[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	q := &Bounded[T]{
		items:    deque.New[T](),
		capacity: capacity,
		running:  true,
	}
	q.notFull.L = &q.mu
	q.notEmpty.L = &q.mu
	return q, nil
}

// MustNew is New for capacities known to be valid. It panics on a configuration error.
func MustNew[T any](capacity int) *Bounded[T] {
	q, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// Enqueue appends v, waiting while the queue is full and running.
// It returns false when the queue was stopped before v could be added; v is dropped in that case.
func (q *Bounded[T]) Enqueue(v T) bool {
	ok, _ := q.EnqueueContext(context.Background(), v)
	return ok
}

// EnqueueContext is Enqueue with an abortable wait. When ctx ends while the queue is full it returns
// ctx.Err() without adding v. Space that is already available is used even if ctx is done.
func (q *Bounded[T]) EnqueueContext(ctx context.Context, v T) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.await(ctx, &q.notFull, q.full); err != nil {
		return false, err
	}
	if !q.running {
		return false, nil
	}
	q.items.PushBack(v)
	q.notEmpty.Signal()
	return true, nil
}

// TryEnqueue appends v only if the queue is running and has room. It never waits.
func (q *Bounded[T]) TryEnqueue(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running || q.items.Len() >= q.capacity {
		return false
	}
	q.items.PushBack(v)
	q.notEmpty.Signal()
	return true
}

// Dequeue removes the oldest value, waiting while the queue is empty and running.
// The boolean is false once the queue is stopped and drained; from then on every call returns
// immediately with false.
func (q *Bounded[T]) Dequeue() (T, bool) {
	v, ok, _ := q.DequeueContext(context.Background())
	return v, ok
}

// DequeueContext is Dequeue with an abortable wait. When ctx ends while the queue is empty and running
// it returns ctx.Err(). A value that is already buffered is returned even if ctx is done.
func (q *Bounded[T]) DequeueContext(ctx context.Context) (T, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.await(ctx, &q.notEmpty, q.empty); err != nil {
		var zero T
		return zero, false, err
	}
	return q.pop()
}

// TryDequeue removes the oldest value if there is one. It never waits.
func (q *Bounded[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	v, ok, _ := q.pop()
	return v, ok
}

// Stop ends the running phase and wakes every waiting producer and consumer.
// Calling Stop more than once has no further effect.
func (q *Bounded[T]) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	q.running = false
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

// Len returns the number of buffered values.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Cap returns the capacity the queue was created with.
func (q *Bounded[T]) Cap() int {
	return q.capacity
}

// IsRunning reports whether Stop has not been called yet.
func (q *Bounded[T]) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Drained reports whether the queue is stopped and empty.
func (q *Bounded[T]) Drained() bool {
	return q.State() == Drained
}

// State returns the lifecycle state.
func (q *Bounded[T]) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.running:
		return Running
	case q.items.Len() > 0:
		return Draining
	default:
		return Drained
	}
}

// pop must be called with mu held.
func (q *Bounded[T]) pop() (T, bool, error) {
	v, ok := q.items.PopFront()
	if !ok {
		return v, false, nil
	}
	q.notFull.Signal()
	return v, true, nil
}

func (q *Bounded[T]) full() bool {
	return q.running && q.items.Len() >= q.capacity
}

func (q *Bounded[T]) empty() bool {
	return q.running && q.items.Len() == 0
}

// await waits on c while blocked reports true. It must be called with mu held and returns with mu held.
// The predicate is checked before the context so a waiter that was signalled always takes its turn.
func (q *Bounded[T]) await(ctx context.Context, c *sync.Cond, blocked func() bool) error {
	if !blocked() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stop := q.wakeOnDone(ctx)
	defer stop()

	for blocked() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.Wait()
	}
	return nil
}

// wakeOnDone broadcasts on both conditions once ctx ends so waiters can observe the cancellation.
// The broadcast takes mu, so it cannot slip in between a waiter's ctx check and its Wait.
func (q *Bounded[T]) wakeOnDone(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return func() bool { return false }
	}
	return context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.notFull.Broadcast()
		q.notEmpty.Broadcast()
	})
}
