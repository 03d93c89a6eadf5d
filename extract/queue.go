package extract

import "errors"

// DefaultCapacity is the per-series cap used by bounded queues when the
// configuration does not name one.
const DefaultCapacity = 64

// ErrQueueFull is returned by PushBack when a bounded queue is at capacity.
// The rejected value is not inserted and the queue is left unchanged.
var ErrQueueFull = errors.New("series queue is at capacity")

// Strategy selects how a series queue manages its backing storage.
type Strategy int

const (
	// Bounded keeps a fixed-capacity ring buffer. Pushing beyond capacity
	// fails with ErrQueueFull, which guarantees bounded memory regardless
	// of how lopsided the input stream is.
	Bounded Strategy = iota
	// Unbounded grows the backing slice geometrically and never rejects a
	// push, at the cost of unbounded memory when one series is starved.
	Unbounded
)

// ParseStrategy maps a config token to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "bounded":
		return Bounded, nil
	case "unbounded":
		return Unbounded, nil
	}
	return Bounded, errors.New("unknown queue strategy: " + s)
}

// Queue is a FIFO over a single value series. Values come out in the exact
// order they went in; Clear is O(1) and keeps the backing storage of a
// bounded queue for reuse.
type Queue[T any] struct {
	strategy Strategy
	buf      []T
	head     int
	count    int
}

func NewQueue[T any](strategy Strategy, capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	q := &Queue[T]{strategy: strategy}
	if strategy == Bounded {
		q.buf = make([]T, capacity)
	}
	return q
}

func (q *Queue[T]) Len() int {
	return q.count
}

// PushBack appends v at the logical back of the queue.
func (q *Queue[T]) PushBack(v T) error {
	if q.strategy == Bounded {
		if q.count == len(q.buf) {
			return ErrQueueFull
		}
		q.buf[(q.head+q.count)%len(q.buf)] = v
		q.count++
		return nil
	}

	// reclaim popped-front storage before growing, so memory tracks the
	// backlog rather than total throughput
	if q.head+q.count == len(q.buf) && q.head > len(q.buf)/2 {
		copy(q.buf, q.buf[q.head:])
		q.buf = q.buf[:q.count]
		q.head = 0
	}

	if q.head+q.count == len(q.buf) {
		q.buf = append(q.buf, v)
	} else {
		q.buf[q.head+q.count] = v
	}
	q.count++
	return nil
}

// PopFront removes and returns the oldest element.
func (q *Queue[T]) PopFront() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}

	v := q.buf[q.head]
	q.count--
	if q.strategy == Bounded {
		q.head = (q.head + 1) % len(q.buf)
	} else {
		q.head++
	}

	// rewind empty queues so the window never creeps toward the end
	if q.count == 0 {
		q.Clear()
	}
	return v, true
}

func (q *Queue[T]) Clear() {
	q.head = 0
	q.count = 0
	if q.strategy == Unbounded {
		q.buf = q.buf[:0]
	}
}
