package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/identity"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
	userdomain "github.com/pranay-th/TGBH-CheeseBurger/internal/user/domain"
)

// mockResolver resolves ids present in users. lookupErr simulates a directory failure.
type mockResolver struct {
	mu        sync.Mutex
	users     map[int64]bool
	lookupErr error
	calls     []int64
}

func newMockResolver(ids ...int64) *mockResolver {
	m := &mockResolver{users: map[int64]bool{}}
	for _, id := range ids {
		m.users[id] = true
	}
	return m
}

func (m *mockResolver) ResolveID(_ context.Context, id int64) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, id)
	if m.lookupErr != nil {
		return nil, errors.Join(identity.ErrLookup, m.lookupErr)
	}
	if !m.users[id] {
		return nil, identity.ErrNotFound
	}
	return &userdomain.User{ID: id}, nil
}

func (m *mockResolver) setLookupErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupErr = err
}

func (m *mockResolver) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// write is one call made to recordingWriter.
type write struct {
	op       string // "event" or "audit"
	subject  int64
	event    domain.Event
	category string
	detail   string
}

// recordingWriter implements telemetry.Writer in memory, recording calls in order.
type recordingWriter struct {
	mu       sync.Mutex
	writes   []write
	eventErr error
	auditErr error
	// gate, when set, blocks each WriteEvent until a value is received.
	gate    chan struct{}
	entered chan struct{}
}

func (w *recordingWriter) WriteEvent(ctx context.Context, subject int64, ev domain.Event) error {
	if w.entered != nil {
		w.entered <- struct{}{}
	}
	if w.gate != nil {
		select {
		case <-w.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.eventErr != nil {
		return w.eventErr
	}
	w.writes = append(w.writes, write{op: "event", subject: subject, event: ev})
	return nil
}

func (w *recordingWriter) WriteAudit(_ context.Context, subject int64, category, detail string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.auditErr != nil {
		return w.auditErr
	}
	w.writes = append(w.writes, write{op: "audit", subject: subject, category: category, detail: detail})
	return nil
}

func (w *recordingWriter) all() []write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]write(nil), w.writes...)
}

func (w *recordingWriter) setErrs(eventErr, auditErr error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.eventErr, w.auditErr = eventErr, auditErr
}

// fakeTransport implements session.Transport and records outbound frames.
type fakeTransport struct {
	id   string
	mu   sync.Mutex
	sent []string
}

func (f *fakeTransport) ID() string         { return f.id }
func (f *fakeTransport) RemoteAddr() string { return "127.0.0.1:1" }
func (f *fakeTransport) Close() error       { return nil }

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, string(data))
	return nil
}

func (f *fakeTransport) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
