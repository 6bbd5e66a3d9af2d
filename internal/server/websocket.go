// Package server exposes the proctoring pipeline over the network: the WebSocket telemetry
// endpoint and HTTP routes on one gin engine, and grpc.health.v1 on a gRPC server.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/session"
	telemetryhandler "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/handler"
)

const writeWait = 10 * time.Second

var (
	// ErrTransportClosed is returned by Send after the connection was closed.
	ErrTransportClosed = errors.New("server: transport closed")
	// ErrSendBufferFull is returned by Send when the peer is not draining its outbound frames.
	ErrSendBufferFull = errors.New("server: send buffer full")
)

// WebSocketConfig tunes the per-connection transport. Zero values select defaults.
type WebSocketConfig struct {
	// MaxMessageBytes is the read limit for one inbound frame. Default 8192.
	MaxMessageBytes int64
	// SendBuffer is the outbound frame buffer depth. Default 16.
	SendBuffer int
	// PingInterval enables ping/pong keepalive when > 0. A peer that misses pongs for
	// PingInterval*10/9 is disconnected.
	PingInterval time.Duration
}

// WebSocket upgrades HTTP requests and runs each connection until the peer goes away.
type WebSocket struct {
	registry   *session.Registry
	dispatcher *telemetryhandler.Dispatcher
	cfg        WebSocketConfig
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewWebSocket returns the WebSocket endpoint handler.
func NewWebSocket(registry *session.Registry, dispatcher *telemetryhandler.Dispatcher, cfg WebSocketConfig, logger *zap.Logger) *WebSocket {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 8192
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 16
	}
	return &WebSocket{
		registry:   registry,
		dispatcher: dispatcher,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Exam clients connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logging.OrNop(logger).Named("websocket"),
	}
}

// ServeHTTP upgrades the request and serves the connection. It returns once the read loop ends.
func (s *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.Debug("upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	t := newTransport(uuid.NewString(), ws, s.cfg.SendBuffer)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writePump(t)
	}()

	h, err := s.registry.Admit(t)
	if err != nil {
		s.logger.Warn("admit failed", zap.String("conn_id", t.id), zap.Error(err))
		_ = t.Close()
		return
	}

	stream := s.dispatcher.NewStream(h)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		stream.Run()
	}()

	s.readPump(t, stream)

	stream.Close()
	s.registry.Forget(h)
	_ = t.Close()
}

// Wait blocks until every connection goroutine has exited or ctx is done.
func (s *WebSocket) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WebSocket) readPump(t *wsTransport, stream *telemetryhandler.Stream) {
	t.ws.SetReadLimit(s.cfg.MaxMessageBytes)
	if s.cfg.PingInterval > 0 {
		pongWait := s.cfg.PingInterval * 10 / 9
		_ = t.ws.SetReadDeadline(time.Now().Add(pongWait))
		t.ws.SetPongHandler(func(string) error {
			return t.ws.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	for {
		_, data, err := t.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Warn("read error", zap.String("conn_id", t.id), zap.Error(err))
			}
			return
		}
		if err := stream.Enqueue(t.ctx, data); err != nil {
			return
		}
	}
}

func (s *WebSocket) writePump(t *wsTransport) {
	var tick <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer t.ws.Close()

	for {
		select {
		case <-t.ctx.Done():
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = t.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-t.send:
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("write failed", zap.String("conn_id", t.id), zap.Error(err))
				return
			}
		case <-tick:
			_ = t.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsTransport is the session.Transport of one WebSocket connection. Writes go through send and
// are serialized by writePump; closing cancels ctx, which makes writePump close the socket.
type wsTransport struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

func newTransport(id string, ws *websocket.Conn, buffer int) *wsTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &wsTransport{id: id, ws: ws, send: make(chan []byte, buffer), ctx: ctx, cancel: cancel}
}

func (t *wsTransport) ID() string         { return t.id }
func (t *wsTransport) RemoteAddr() string { return t.ws.RemoteAddr().String() }

func (t *wsTransport) Send(data []byte) error {
	if t.ctx.Err() != nil {
		return ErrTransportClosed
	}
	select {
	case t.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (t *wsTransport) Close() error {
	t.cancel()
	return nil
}
