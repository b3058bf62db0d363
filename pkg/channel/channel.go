package channel

import (
	"iter"
	"sync"

	srvErrors "github.com/tupyy/taskcore/pkg/errors"
)

type state[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []T
	head     int
	capacity int // 0 means unbounded
	senders  int
	rxClosed bool
}

func newState[T any](capacity int) *state[T] {
	s := &state[T]{capacity: capacity, senders: 1}
	s.notEmpty = sync.NewCond(&s.mu)
	s.notFull = sync.NewCond(&s.mu)
	return s
}

func (s *state[T]) len() int {
	return len(s.buf) - s.head
}

func (s *state[T]) pop() T {
	var zero T
	v := s.buf[s.head]
	s.buf[s.head] = zero
	s.head++
	if s.head == len(s.buf) {
		s.buf = s.buf[:0]
		s.head = 0
	} else if s.head > 64 && s.head*2 >= len(s.buf) {
		n := copy(s.buf, s.buf[s.head:])
		clear(s.buf[n:])
		s.buf = s.buf[:n]
		s.head = 0
	}
	return v
}

// New returns the first sender and the receiver of an unbounded channel.
// Send never blocks.
func New[T any]() (*Sender[T], *Receiver[T]) {
	s := newState[T](0)
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// NewBounded returns a channel buffering at most capacity messages. Send
// blocks while the buffer is full. Capacities below 1 are raised to 1.
func NewBounded[T any](capacity int) (*Sender[T], *Receiver[T]) {
	if capacity < 1 {
		capacity = 1
	}
	s := newState[T](capacity)
	return &Sender[T]{s: s}, &Receiver[T]{s: s}
}

// Sender is one producer handle. Handles are independent: closing one does
// not affect the others.
type Sender[T any] struct {
	s      *state[T]
	mu     sync.Mutex
	closed bool
}

// Clone registers a new sender on the same channel.
func (tx *Sender[T]) Clone() *Sender[T] {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		panic("channel: clone of a closed sender")
	}

	tx.s.mu.Lock()
	tx.s.senders++
	tx.s.mu.Unlock()

	return &Sender[T]{s: tx.s}
}

// Send enqueues v. Messages from one sender are received in send order.
func (tx *Sender[T]) Send(v T) error {
	tx.mu.Lock()
	closed := tx.closed
	tx.mu.Unlock()
	if closed {
		return srvErrors.ErrSenderClosed
	}

	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.capacity > 0 && s.len() >= s.capacity && !s.rxClosed {
		s.notFull.Wait()
	}
	if s.rxClosed {
		return srvErrors.ErrReceiverClosed
	}

	s.buf = append(s.buf, v)
	s.notEmpty.Signal()
	return nil
}

// Close drops the handle. When the last sender is dropped the receiver
// observes end-of-stream after draining the buffer.
func (tx *Sender[T]) Close() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return
	}
	tx.closed = true

	s := tx.s
	s.mu.Lock()
	s.senders--
	if s.senders == 0 {
		s.notEmpty.Broadcast()
	}
	s.mu.Unlock()
}

// Receiver is the single consumer handle. It is not safe for concurrent use
// by several goroutines.
type Receiver[T any] struct {
	s *state[T]
}

// Receive blocks until a message is available or the channel is closed and
// drained, in which case ok is false.
func (rx *Receiver[T]) Receive() (v T, ok bool) {
	s := rx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.len() == 0 && s.senders > 0 && !s.rxClosed {
		s.notEmpty.Wait()
	}
	if s.len() == 0 || s.rxClosed {
		return v, false
	}

	v = s.pop()
	s.notFull.Signal()
	return v, true
}

// TryReceive does not block. It returns ErrEmpty when nothing is buffered
// but senders remain; ok == false with a nil error means end-of-stream.
func (rx *Receiver[T]) TryReceive() (v T, ok bool, err error) {
	s := rx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rxClosed {
		return v, false, nil
	}
	if s.len() == 0 {
		if s.senders > 0 {
			return v, false, srvErrors.ErrEmpty
		}
		return v, false, nil
	}

	v = s.pop()
	s.notFull.Signal()
	return v, true, nil
}

// All yields messages until end-of-stream.
func (rx *Receiver[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := rx.Receive()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect drains the channel until end-of-stream.
func (rx *Receiver[T]) Collect() []T {
	var out []T
	for v := range rx.All() {
		out = append(out, v)
	}
	return out
}

// Close drops the receiver. Buffered messages are discarded and blocked or
// future senders get ErrReceiverClosed.
func (rx *Receiver[T]) Close() {
	s := rx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rxClosed {
		return
	}
	s.rxClosed = true
	clear(s.buf)
	s.buf = nil
	s.head = 0
	s.notFull.Broadcast()
	s.notEmpty.Broadcast()
}
