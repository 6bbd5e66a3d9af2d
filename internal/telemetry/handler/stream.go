package handler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/session"
)

// ErrStreamClosed is returned by Enqueue once the stream is closed.
var ErrStreamClosed = errors.New("handler: stream closed")

// State is the protocol state of one connection.
type State int32

const (
	StateAwaitingFirstFrame State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingFirstFrame:
		return "awaiting_first_frame"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is the per-connection worker: a bounded FIFO of inbound frames drained by exactly one
// goroutine (Run), so frames from one connection are handled strictly in arrival order.
type Stream struct {
	d       *Dispatcher
	conn    *session.Handle
	queue   chan inbound
	state   atomic.Int32
	handled atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewStream returns a stream for an admitted connection. Start it with Run.
func (d *Dispatcher) NewStream(conn *session.Handle) *Stream {
	return &Stream{
		d:       d,
		conn:    conn,
		queue:   make(chan inbound, d.queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// State returns the current protocol state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Handled returns the number of frames processed so far.
func (s *Stream) Handled() uint64 { return s.handled.Load() }

// activate moves AWAITING_FIRST_FRAME to ACTIVE; other states are left alone.
func (s *Stream) activate() {
	s.state.CompareAndSwap(int32(StateAwaitingFirstFrame), int32(StateActive))
}

// Enqueue records arrival of data on the connection and queues it. It blocks while the queue is
// full, which stalls only this connection's reader.
func (s *Stream) Enqueue(ctx context.Context, data []byte) error {
	if s.State() == StateClosed {
		return ErrStreamClosed
	}
	in := inbound{seq: s.conn.Touch(s.d.now()), data: data}
	select {
	case s.queue <- in:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles queued frames until Close. A frame in progress when Close is called completes;
// frames still queued are discarded.
func (s *Stream) Run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case in := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.d.handle(s, in)
			s.handled.Add(1)
		}
	}
}

// Close moves the stream to CLOSED and stops the worker. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)
	})
}

// Wait blocks until Run has returned. Only call it after Run was started.
func (s *Stream) Wait() {
	<-s.stopped
}
