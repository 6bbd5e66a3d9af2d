package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/identity"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/session"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
	telemetryhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/handler"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/protocol"
	userdomain "github.com/pranay-th/TGBH-CheeseBurger/internal/user/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct{ users map[int64]bool }

func (r stubResolver) ResolveID(_ context.Context, id int64) (*userdomain.User, error) {
	if !r.users[id] {
		return nil, identity.ErrNotFound
	}
	return &userdomain.User{ID: id}, nil
}

type memWriter struct {
	mu     sync.Mutex
	events []domain.Event
	audits []string
}

func (w *memWriter) WriteEvent(_ context.Context, _ int64, ev domain.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

func (w *memWriter) WriteAudit(_ context.Context, _ int64, category, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.audits = append(w.audits, category)
	return nil
}

func (w *memWriter) eventCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

type testServer struct {
	url      string
	registry *session.Registry
	ws       *WebSocket
	writer   *memWriter
}

func newTestServer(t *testing.T, cfg WebSocketConfig) *testServer {
	t.Helper()
	resolver := stubResolver{users: map[int64]bool{7: true}}
	writer := &memWriter{}
	dispatcher, err := telemetryhandler.NewDispatcher(resolver, writer, telemetryhandler.Options{})
	require.NoError(t, err)
	registry := session.NewRegistry(nil)
	ws := NewWebSocket(registry, dispatcher, cfg, nil)
	router := NewRouter(RouterDeps{
		WSPath:    "/ws",
		WebSocket: ws,
		Ingest:    telemetryhandler.NewIngest(resolver, writer, 1<<20, nil),
		Registry:  registry,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		registry.CloseAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ws.Wait(ctx)
		srv.Close()
	})
	return &testServer{url: srv.URL, registry: registry, ws: ws, writer: writer}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) protocol.Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out protocol.Outbound
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func writeText(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestWebSocket_EndToEnd(t *testing.T) {
	s := newTestServer(t, WebSocketConfig{})
	conn := s.dial(t)

	info := readFrame(t, conn)
	assert.Equal(t, protocol.TypeInfo, info.Type)
	assert.Equal(t, protocol.ConnectedMessage, info.Message)

	// Malformed and unknown-subject frames produce no reply; the next reply is the ack.
	writeText(t, conn, "not json")
	writeText(t, conn, `{"type":"heartbeat","userId":999}`)
	writeText(t, conn, `{"type":"heartbeat","userId":7}`)
	assert.Equal(t, protocol.TypeHeartbeatAck, readFrame(t, conn).Type)

	writeText(t, conn, `{"type":"keystroke","userId":"7","keyPressed":"a"}`)
	writeText(t, conn, `{"type":"tabSwitch","userId":7,"tabUrl":"https://exam.example/q1","visible":false}`)
	assert.Eventually(t, func() bool { return s.writer.eventCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	s.writer.mu.Lock()
	assert.Equal(t, domain.Keystroke{Key: "a"}, s.writer.events[0])
	assert.Equal(t, domain.KindVisibilityChange, s.writer.events[1].Kind())
	s.writer.mu.Unlock()

	resp, err := http.Get(s.url + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Clients)
	require.Len(t, stats.Connections, 1)
	assert.Equal(t, int64(7), stats.Connections[0].UserID)
	assert.Equal(t, uint64(5), stats.Connections[0].Seq)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()
	assert.Eventually(t, func() bool { return s.registry.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWebSocket_ConnectionsAreIndependent(t *testing.T) {
	s := newTestServer(t, WebSocketConfig{})
	a, b := s.dial(t), s.dial(t)
	readFrame(t, a)
	readFrame(t, b)
	assert.Eventually(t, func() bool { return s.registry.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	_ = a.Close()
	assert.Eventually(t, func() bool { return s.registry.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	writeText(t, b, `{"type":"heartbeat","userId":7}`)
	assert.Equal(t, protocol.TypeHeartbeatAck, readFrame(t, b).Type)
}

func TestWebSocket_OversizedFrameClosesConnection(t *testing.T) {
	s := newTestServer(t, WebSocketConfig{MaxMessageBytes: 64})
	conn := s.dial(t)
	readFrame(t, conn)

	writeText(t, conn, `{"type":"keystroke","userId":7,"keyPressed":"`+strings.Repeat("x", 128)+`"}`)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return s.registry.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, s.writer.eventCount())
}

func TestWebSocket_PingKeepsConnectionAlive(t *testing.T) {
	s := newTestServer(t, WebSocketConfig{PingInterval: 50 * time.Millisecond})
	conn := s.dial(t)

	pings := make(chan struct{}, 8)
	conn.SetPingHandler(func(data string) error {
		select {
		case pings <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	// Pings are handled inside ReadMessage.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-pings:
		case <-time.After(5 * time.Second):
			t.Fatal("no ping received")
		}
	}
	assert.Equal(t, 1, s.registry.Len())
}

func TestWebSocket_CloseAllDisconnectsAndWaitReturns(t *testing.T) {
	s := newTestServer(t, WebSocketConfig{})
	conn := s.dial(t)
	readFrame(t, conn)

	s.registry.CloseAll()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.ws.Wait(ctx))
	assert.Zero(t, s.registry.Len())
}

func TestRouter_Health(t *testing.T) {
	r := NewRouter(RouterDeps{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_RequestID(t *testing.T) {
	r := NewRouter(RouterDeps{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}

func TestRouter_IngestMounted(t *testing.T) {
	s := newTestServer(t, WebSocketConfig{})
	resp, err := http.Post(s.url+"/api/events", "application/json",
		strings.NewReader(`{"type":"mouseMovement","userId":7,"xPos":1,"yPos":2}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.writer.eventCount())
}

func TestRouter_StatsEmpty(t *testing.T) {
	r := NewRouter(RouterDeps{Registry: session.NewRegistry(nil)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Zero(t, stats.Clients)
	assert.Empty(t, stats.Connections)
}
