// Package deque provides a doubly-linked double-ended queue with O(1) pushes and pops at both ends.
//
// A Deque owns its nodes: they are allocated on insertion, unlinked on removal and never handed out to
// callers. The type is not safe for concurrent use; wrap it (see pkg/queue) when it is shared.
package deque

import "iter"

type node[T any] struct {
	value T
	next  *node[T]
	prev  *node[T]
}

// Deque is a doubly-linked list of values of type T.
//
// Invariant: Len() == 0 exactly when head and tail are both nil, and following next links from head
// visits Len() nodes ending at tail.
type Deque[T any] struct {
	head *node[T]
	tail *node[T]
	size int
}

// New returns an empty deque.
func New[T any]() *Deque[T] {
	return &Deque[T]{}
}

// Len returns the number of values held by the deque.
func (d *Deque[T]) Len() int {
	return d.size
}

// PushBack appends v at the tail.
func (d *Deque[T]) PushBack(v T) {
	n := &node[T]{value: v}
	if d.tail == nil {
		d.head, d.tail = n, n
	} else {
		n.prev = d.tail
		d.tail.next = n
		d.tail = n
	}
	d.size++
}

// PushFront prepends v at the head.
func (d *Deque[T]) PushFront(v T) {
	n := &node[T]{value: v}
	if d.head == nil {
		d.head, d.tail = n, n
	} else {
		n.next = d.head
		d.head.prev = n
		d.head = n
	}
	d.size++
}

// PopFront removes and returns the value at the head. The boolean is false when the deque is empty.
func (d *Deque[T]) PopFront() (T, bool) {
	if d.head == nil {
		var zero T
		return zero, false
	}
	n := d.head
	d.head = n.next
	if d.head == nil {
		d.tail = nil
	} else {
		d.head.prev = nil
	}
	d.size--
	return d.release(n), true
}

// PopBack removes and returns the value at the tail. The boolean is false when the deque is empty.
func (d *Deque[T]) PopBack() (T, bool) {
	if d.tail == nil {
		var zero T
		return zero, false
	}
	n := d.tail
	d.tail = n.prev
	if d.tail == nil {
		d.head = nil
	} else {
		d.tail.next = nil
	}
	d.size--
	return d.release(n), true
}

// Front returns the value at the head without removing it.
func (d *Deque[T]) Front() (T, bool) {
	if d.head == nil {
		var zero T
		return zero, false
	}
	return d.head.value, true
}

// Back returns the value at the tail without removing it.
func (d *Deque[T]) Back() (T, bool) {
	if d.tail == nil {
		var zero T
		return zero, false
	}
	return d.tail.value, true
}

// All iterates the values from head to tail. The deque must not be modified during iteration.
func (d *Deque[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := d.head; n != nil; n = n.next {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Clear drops every value.
func (d *Deque[T]) Clear() {
	for n := d.head; n != nil; {
		next := n.next
		d.release(n)
		n = next
	}
	d.head, d.tail, d.size = nil, nil, 0
}

// release unlinks n so a removed node keeps neither its neighbours nor its value reachable.
func (d *Deque[T]) release(n *node[T]) T {
	v := n.value
	var zero T
	n.value = zero
	n.next, n.prev = nil, nil
	return v
}
