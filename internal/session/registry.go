// Package session tracks live telemetry connections: their subject, liveness and sequence.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/session/domain"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/protocol"
)

// ErrSubjectMismatch is returned by Handle.Bind when the connection is already bound to another subject.
var ErrSubjectMismatch = errors.New("session: connection bound to a different subject")

// Transport is the outbound side of one open connection.
type Transport interface {
	// ID identifies the transport; unique among open transports.
	ID() string
	RemoteAddr() string
	Send(data []byte) error
	Close() error
}

// Handle is the registry entry for one admitted transport.
type Handle struct {
	transport   Transport
	connectedAt time.Time
	lastSeen    atomic.Int64 // unix nanos
	seq         atomic.Uint64
	subject     atomic.Int64
}

// ID returns the transport id.
func (h *Handle) ID() string { return h.transport.ID() }

// Send writes data to the underlying transport.
func (h *Handle) Send(data []byte) error { return h.transport.Send(data) }

// Touch records inbound activity at t and returns the frame's sequence number (1-based).
func (h *Handle) Touch(t time.Time) uint64 {
	h.lastSeen.Store(t.UnixNano())
	return h.seq.Add(1)
}

// LastSeen returns the time of the last inbound frame, or the admit time if none arrived yet.
func (h *Handle) LastSeen() time.Time { return time.Unix(0, h.lastSeen.Load()) }

// Seq returns the number of inbound frames seen.
func (h *Handle) Seq() uint64 { return h.seq.Load() }

// Subject returns the bound subject id and whether one is bound.
func (h *Handle) Subject() (int64, bool) {
	id := h.subject.Load()
	return id, id != 0
}

// Bind associates the connection with subject. Binding happens once; rebinding to the same subject
// is a no-op and a different subject yields ErrSubjectMismatch.
func (h *Handle) Bind(subject int64) error {
	if subject <= 0 {
		return fmt.Errorf("session: invalid subject %d", subject)
	}
	if h.subject.CompareAndSwap(0, subject) || h.subject.Load() == subject {
		return nil
	}
	return ErrSubjectMismatch
}

// Snapshot returns a copy of the handle's current state.
func (h *Handle) Snapshot() domain.Session {
	subject, _ := h.Subject()
	return domain.Session{
		ID:          h.ID(),
		UserID:      subject,
		RemoteAddr:  h.transport.RemoteAddr(),
		ConnectedAt: h.connectedAt,
		LastSeenAt:  h.LastSeen(),
		Seq:         h.Seq(),
	}
}

// Registry holds the handles of every open transport. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Handle
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry returns an empty registry. logger may be nil.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*Handle),
		logger: logging.OrNop(logger).Named("registry"),
		now:    time.Now,
	}
}

// Admit registers t and sends the connected info frame over it. Admitting an already admitted
// transport returns its existing handle without a second info frame. If the info frame cannot be
// sent the transport is forgotten again and the send error returned.
func (r *Registry) Admit(t Transport) (*Handle, error) {
	now := r.now()
	r.mu.Lock()
	if h, ok := r.conns[t.ID()]; ok {
		r.mu.Unlock()
		return h, nil
	}
	h := &Handle{transport: t, connectedAt: now}
	h.lastSeen.Store(now.UnixNano())
	r.conns[t.ID()] = h
	count := len(r.conns)
	r.mu.Unlock()

	r.logger.Info("client connected",
		zap.String("conn_id", t.ID()),
		zap.String("remote_addr", t.RemoteAddr()),
		zap.Int("clients", count))

	if err := h.Send(protocol.Connected()); err != nil {
		r.Forget(h)
		return nil, fmt.Errorf("session: send connected frame: %w", err)
	}
	return h, nil
}

// Forget removes h. It reports whether h was present; forgetting an absent handle is a no-op.
func (r *Registry) Forget(h *Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	cur, ok := r.conns[h.ID()]
	if ok && cur == h {
		delete(r.conns, h.ID())
	}
	count := len(r.conns)
	r.mu.Unlock()

	if !ok || cur != h {
		return false
	}
	subject, _ := h.Subject()
	r.logger.Info("client disconnected",
		zap.String("conn_id", h.ID()),
		zap.Int64("user_id", subject),
		zap.Uint64("seq", h.Seq()),
		zap.Int("clients", count))
	return true
}

// Get returns the handle for a transport id.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[id]
	return h, ok
}

// Len returns the number of open connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Snapshot returns the state of every open connection, oldest first.
func (r *Registry) Snapshot() []domain.Session {
	r.mu.RLock()
	out := make([]domain.Session, 0, len(r.conns))
	for _, h := range r.conns {
		out = append(out, h.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConnectedAt.Equal(out[j].ConnectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ConnectedAt.Before(out[j].ConnectedAt)
	})
	return out
}

// MaxIdle returns the longest time since last activity across open connections.
func (r *Registry) MaxIdle() time.Duration {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max time.Duration
	for _, h := range r.conns {
		if idle := now.Sub(h.LastSeen()); idle > max {
			max = idle
		}
	}
	return max
}

// CloseAll closes every open transport. Handles are forgotten by their owners as their read
// loops exit.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	transports := make([]Transport, 0, len(r.conns))
	for _, h := range r.conns {
		transports = append(transports, h.transport)
	}
	r.mu.RUnlock()

	for _, t := range transports {
		if err := t.Close(); err != nil {
			r.logger.Debug("close transport", zap.String("conn_id", t.ID()), zap.Error(err))
		}
	}
}
