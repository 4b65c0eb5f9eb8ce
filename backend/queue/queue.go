package queue

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("queue is closed")

// Unbounded is a FIFO queue whose Send never blocks. Values are delivered
// through Out by a pump goroutine that lives until the queue is drained after
// Close, or until Abort.
type Unbounded[T any] struct {
	mx     *sync.Mutex
	buf    []T
	closed bool

	signal chan struct{}
	done   chan struct{}
	abort  *sync.Once
	out    chan T
}

func New[T any]() *Unbounded[T] {
	q := &Unbounded[T]{
		mx:     &sync.Mutex{},
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		abort:  &sync.Once{},
		out:    make(chan T),
	}
	go q.pump()
	return q
}

// Send enqueues v. It fails once the queue was closed from either side.
func (q *Unbounded[T]) Send(v T) error {
	q.mx.Lock()
	defer q.mx.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.buf = append(q.buf, v)
	q.wake()
	return nil
}

// Out returns the receive side. It is closed after Close once every buffered
// value was delivered, or right away on Abort.
func (q *Unbounded[T]) Out() <-chan T {
	return q.out
}

// Close marks the sending side as finished.
func (q *Unbounded[T]) Close() {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.closed = true
	q.wake()
}

// Abort drops buffered values and closes both sides.
func (q *Unbounded[T]) Abort() {
	q.abort.Do(func() {
		q.mx.Lock()
		q.closed = true
		q.buf = nil
		q.mx.Unlock()
		close(q.done)
	})
}

// buffered reports the number of values not yet handed to the receiver.
func (q *Unbounded[T]) buffered() int {
	q.mx.Lock()
	defer q.mx.Unlock()
	return len(q.buf)
}

func (q *Unbounded[T]) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Unbounded[T]) pump() {
	defer close(q.out)
	for {
		q.mx.Lock()
		if len(q.buf) == 0 {
			closed := q.closed
			q.mx.Unlock()
			if closed {
				return
			}
			select {
			case <-q.signal:
				continue
			case <-q.done:
				return
			}
		}
		head := q.buf[0]
		q.mx.Unlock()

		select {
		case q.out <- head:
			q.mx.Lock()
			if len(q.buf) > 0 {
				var zero T
				q.buf[0] = zero
				q.buf = q.buf[1:]
			}
			q.mx.Unlock()
		case <-q.done:
			return
		}
	}
}
