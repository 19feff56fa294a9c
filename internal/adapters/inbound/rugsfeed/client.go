// Package rugsfeed maintains the single, strictly read-only upstream
// session to the game feed (spec.md §4.1). It never writes an application
// frame to the upstream socket — only protocol-level pong control frames.
package rugsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dutchthenomad/rugfeed/internal/domain"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

const (
	minBackoff  = 1 * time.Second
	maxBackoff  = 5 * time.Second
	readTimeout = 60 * time.Second
)

// ConnectionRecorder persists ConnectionEvent rows. Implemented by the
// persistence layer; kept as a narrow interface so the consumer is testable
// without a real store.
type ConnectionRecorder interface {
	RecordConnectionEvent(ctx context.Context, evt domain.ConnectionEvent)
}

// Client owns exactly one session to the upstream feed.
type Client struct {
	url           string
	maxReconnects int // 0 = unlimited
	recorder      ConnectionRecorder

	out chan Frame

	connected atomic.Bool
	socketID  atomic.Value // string
}

// NewClient constructs a consumer publishing received frames to a bounded
// channel of size queueSize. On overflow, the oldest frame is dropped and
// telemetry.Metrics.UpstreamDropped is incremented (spec.md §4.1 output
// contract: availability over completeness under pressure).
func NewClient(url string, queueSize, maxReconnects int, recorder ConnectionRecorder) *Client {
	c := &Client{
		url:           url,
		maxReconnects: maxReconnects,
		recorder:      recorder,
		out:           make(chan Frame, queueSize),
	}
	c.socketID.Store("")
	return c
}

// Frames returns the channel of inbound frames for the router to drain.
func (c *Client) Frames() <-chan Frame { return c.out }

// Connected reports upstream liveness, consumed by GET /api/readiness.
func (c *Client) Connected() bool { return c.connected.Load() }

// SocketID returns the current session identifier, or "" if disconnected.
func (c *Client) SocketID() string {
	v, _ := c.socketID.Load().(string)
	return v
}

// record persists a ConnectionEvent if a recorder was configured.
func (c *Client) record(ctx context.Context, evt domain.ConnectionEvent) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordConnectionEvent(ctx, evt)
}

// publishFrame enqueues f, dropping the oldest queued frame on overflow.
func (c *Client) publishFrame(f Frame) {
	select {
	case c.out <- f:
		return
	default:
	}

	select {
	case <-c.out:
	default:
	}
	select {
	case c.out <- f:
	default:
	}
	telemetry.Metrics.UpstreamDropped.Inc()
}

// ConnectWithRetry connects and reconnects with jittered exponential
// backoff bounded to [1s, 5s] (spec.md §4.1) until ctx is cancelled or
// maxReconnects is exhausted.
func (c *Client) ConnectWithRetry(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}
		attempt++

		if err != nil {
			c.record(ctx, domain.ConnectionEvent{
				EventType: domain.ConnEventError,
				Attempt:   attempt,
				Message:   err.Error(),
				CreatedAt: time.Now().UTC(),
			})
		}

		if c.maxReconnects > 0 && attempt > c.maxReconnects {
			c.record(ctx, domain.ConnectionEvent{
				EventType: domain.ConnEventMaxReconnectReached,
				CreatedAt: time.Now().UTC(),
			})
			telemetry.Warnf("rugsfeed: max reconnects (%d) reached, giving up", c.maxReconnects)
			return
		}

		backoff := jitteredBackoff(attempt)
		telemetry.Warnf("rugsfeed: connection lost (attempt %d): %v — retrying in %s", attempt, err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// jitteredBackoff returns a full-jitter exponential delay bounded to
// [minBackoff, maxBackoff]. Jitter distribution and cap are left to
// implementation per spec.md §9; full jitter is the conservative choice.
func jitteredBackoff(attempt int) time.Duration {
	exp := minBackoff << uint(min(attempt-1, 4))
	if exp > maxBackoff {
		exp = maxBackoff
	}
	jittered := time.Duration(rand.Int63n(int64(exp-minBackoff) + 1)) + minBackoff
	return jittered
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sessionID := fmt.Sprintf("sess-%d", time.Now().UnixNano())
	c.socketID.Store(sessionID)
	c.connected.Store(true)
	telemetry.Metrics.CurrentSocketConnected.Set(1)
	telemetry.Metrics.SocketID.Set(sessionID)
	defer func() {
		c.connected.Store(false)
		c.socketID.Store("")
		telemetry.Metrics.CurrentSocketConnected.Set(0)
		telemetry.Metrics.SocketID.Set("")
	}()

	c.record(ctx, domain.ConnectionEvent{
		EventType: domain.ConnEventConnected,
		CreatedAt: time.Now().UTC(),
	})
	telemetry.Infof("rugsfeed: connected socketId=%s", sessionID)

	// Strictly read-only: the only write this client ever performs is the
	// control-frame pong reply, never an application message.
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.record(ctx, domain.ConnectionEvent{
				EventType: domain.ConnEventDisconnected,
				Reason:    err.Error(),
				CreatedAt: time.Now().UTC(),
			})
			return fmt.Errorf("read: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			telemetry.Metrics.WSParseErrors.Inc()
			telemetry.Warnf("rugsfeed: unmarshal envelope: %v", err)
			continue
		}
		if env.Event == "" {
			continue
		}

		receivedAt := time.Now().UTC()
		telemetry.Metrics.LastEventAt.Set(receivedAt)
		c.publishFrame(Frame{
			EventName:  env.Event,
			Payload:    env.Data,
			ReceivedAt: receivedAt,
		})
	}
}
