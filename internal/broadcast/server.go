// Package broadcast fans normalized frames out to WebSocket subscribers
// (spec.md §4.7), adapted from the teacher's fanout server: one bounded
// send channel per subscriber, a dedicated write/read pump pair, and
// non-blocking publish. Unlike the teacher, a full send buffer here evicts
// the subscriber outright rather than merely dropping one message — the
// spec treats a backed-up subscriber as unrecoverable, not transient.
package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dutchthenomad/rugfeed/internal/ingest"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

const (
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type subscriber struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// closeDone closes c.done exactly once, safe to call from both the read
// pump (on disconnect) and a concurrent eviction (on slow-consumer drop).
func (c *subscriber) closeDone() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Server holds the set of active WebSocket subscribers and fans outbound
// frames out to them.
type Server struct {
	mu             sync.Mutex
	subs           map[*subscriber]struct{}
	sendBuffer     int
	heartbeatEvery time.Duration
}

// NewServer builds a Server. sendBuffer is each subscriber's bounded queue
// depth (BROADCAST_BUFFER); heartbeatEvery is the application heartbeat
// cadence (spec.md §4.7 names 30s).
func NewServer(sendBuffer int, heartbeatEvery time.Duration) *Server {
	return &Server{
		subs:           make(map[*subscriber]struct{}),
		sendBuffer:     sendBuffer,
		heartbeatEvery: heartbeatEvery,
	}
}

// Publish implements ingest.Publisher: it serializes frame once and
// enqueues it to every subscriber with room, evicting any that don't.
func (s *Server) Publish(frame ingest.OutboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		telemetry.Warnf("broadcast: marshal frame type=%s: %v", frame.Type, err)
		return
	}
	s.broadcastRaw(data)
}

func (s *Server) broadcastRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.subs {
		select {
		case c.send <- data:
		default:
			s.evictLocked(c)
		}
	}
	telemetry.Metrics.WSSubscribers.Set(int64(len(s.subs)))
}

// Run drives the periodic application heartbeat until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	if s.heartbeatEvery <= 0 {
		return
	}
	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame := ingest.OutboundFrame{Schema: "v1", Type: "heartbeat", TS: time.Now().UTC()}
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			s.broadcastRaw(data)
		}
	}
}

// HandleWS upgrades the request and registers a new subscriber, sending
// the initial hello frame before any other traffic.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warnf("broadcast: upgrade failed: %v", err)
		return
	}

	c := &subscriber{
		conn: conn,
		send: make(chan []byte, s.sendBuffer),
		done: make(chan struct{}),
	}

	hello := ingest.OutboundFrame{Schema: "v1", Type: "hello", TS: time.Now().UTC()}
	if data, err := json.Marshal(hello); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	s.mu.Lock()
	s.subs[c] = struct{}{}
	telemetry.Metrics.WSSubscribers.Set(int64(len(s.subs)))
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

// writePump drains the subscriber's send channel to the connection. It owns
// the subscriber's lifecycle: on exit it deregisters and closes conn.
func (s *Server) writePump(c *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.remove(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the connection alive by reading pongs and close frames.
// Subscribers are never expected to send application data (spec.md §4.7);
// anything received is discarded.
func (s *Server) readPump(c *subscriber) {
	defer c.closeDone()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// evictLocked removes a slow subscriber. Must be called with s.mu held.
func (s *Server) evictLocked(c *subscriber) {
	delete(s.subs, c)
	telemetry.Metrics.WSSlowClientDrops.Inc()
	c.closeDone()
}

func (s *Server) remove(c *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[c]; ok {
		delete(s.subs, c)
		telemetry.Metrics.WSSubscribers.Set(int64(len(s.subs)))
	}
}
