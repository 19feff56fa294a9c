package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dutchthenomad/rugfeed/internal/ingest"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

func dialTestServer(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func TestHandleWSSendsHelloThenPublishedFrames(t *testing.T) {
	srv := NewServer(8, 0)
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var hello map[string]interface{}
	if err := json.Unmarshal(msg, &hello); err != nil {
		t.Fatalf("decode hello: %v", err)
	}
	if hello["type"] != "hello" {
		t.Fatalf("first frame type = %v, want hello", hello["type"])
	}

	srv.Publish(ingest.OutboundFrame{Schema: "v1", Type: "trade", GameID: "g1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read published frame: %v", err)
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame["type"] != "trade" || frame["gameId"] != "g1" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	before := telemetry.Metrics.WSSlowClientDrops.Value()

	srv := NewServer(1, 0) // buffer of 1: easy to overflow
	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	// Drain the hello frame but never read again, so the send buffer backs up.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read hello: %v", err)
	}

	for i := 0; i < 10; i++ {
		srv.Publish(ingest.OutboundFrame{Schema: "v1", Type: "trade", Tick: i})
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if telemetry.Metrics.WSSlowClientDrops.Value() > before {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected a slow subscriber to be evicted and counted")
}

func TestRunEmitsHeartbeats(t *testing.T) {
	srv := NewServer(8, 20*time.Millisecond)
	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read hello: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read heartbeat: %v", err)
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("decode heartbeat: %v", err)
	}
	if frame["type"] != "heartbeat" {
		t.Fatalf("frame type = %v, want heartbeat", frame["type"])
	}
}
