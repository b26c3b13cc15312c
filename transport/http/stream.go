package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/layer-3/dealguard/core"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamMessage struct {
	Type string `json:"type"`
	Body any    `json:"body,omitempty"`
}

// writer is one stream subscriber
type writer interface {
	Write(message []byte) error
	Close() error
}

type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

// Stream pushes snapshots and incoming escrow notices to the websocket
// connections of the signed in address
type Stream struct {
	snapshot func() core.Snapshot
	identity func() core.Identity
	log      zerolog.Logger

	mu    sync.RWMutex
	conns map[string]map[writer]struct{}
}

// NewStream creates a stream. snapshot and identity read the current state
// for newly connected clients and for routing.
func NewStream(snapshot func() core.Snapshot, identity func() core.Identity, logger zerolog.Logger) *Stream {
	return &Stream{
		snapshot: snapshot,
		identity: identity,
		log:      logger.With().Str("component", "stream").Logger(),
		conns:    make(map[string]map[writer]struct{}),
	}
}

// PublishSnapshot sends snap to the connections of the address it was
// published for
func (s *Stream) PublishSnapshot(snap core.Snapshot) {
	s.broadcast(snap.Address, streamMessage{Type: "snapshot", Body: snap})
}

// NotifyIncoming tells the current identity about an escrow naming it as seller
func (s *Stream) NotifyIncoming(tx core.Transaction) {
	s.broadcast(s.identity().Address, streamMessage{Type: "incoming", Body: tx})
}

// CloseAddress drops every connection of address, used on logout
func (s *Stream) CloseAddress(address string) {
	s.mu.Lock()
	set := s.conns[address]
	delete(s.conns, address)
	s.mu.Unlock()

	for w := range set {
		_ = w.Close()
	}
}

// Serve upgrades the request and keeps the connection until the client leaves
func (s *Stream) Serve(c *gin.Context) {
	id := identityFrom(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	w := &wsWriter{conn: ws}
	s.register(id.Address, w)
	defer func() {
		s.unregister(id.Address, w)
		_ = ws.Close()
	}()

	if out, err := json.Marshal(streamMessage{Type: "snapshot", Body: snapshotFor(s.snapshot(), id.Address)}); err == nil {
		_ = w.Write(out)
	}

	ws.SetReadLimit(64 * 1024)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := w.ping(); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()

	// Clients only send pings; reading drives the pong handler and detects close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Stream) register(address string, w writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns[address] == nil {
		s.conns[address] = make(map[writer]struct{})
	}
	s.conns[address][w] = struct{}{}
}

func (s *Stream) unregister(address string, w writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.conns[address]
	if set == nil {
		return
	}
	delete(set, w)
	if len(set) == 0 {
		delete(s.conns, address)
	}
}

func (s *Stream) broadcast(address string, msg streamMessage) {
	if address == "" {
		return
	}

	out, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Str("type", msg.Type).Msg("failed to encode stream message")
		return
	}

	s.mu.RLock()
	set := s.conns[address]
	targets := make([]writer, 0, len(set))
	for w := range set {
		targets = append(targets, w)
	}
	s.mu.RUnlock()

	var failed []writer
	for _, w := range targets {
		if err := w.Write(out); err != nil {
			failed = append(failed, w)
		}
	}
	for _, w := range failed {
		_ = w.Close()
		s.unregister(address, w)
	}
}
