package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// socketServer runs serve for each connection and records handshake headers.
type socketServer struct {
	*httptest.Server

	mu         sync.Mutex
	authHeader string
}

func newSocketServer(t *testing.T, serve func(conn *websocket.Conn)) *socketServer {
	t.Helper()
	s := &socketServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.authHeader = r.Header.Get("Authorization")
		s.mu.Unlock()

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *socketServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

// echoAck answers every request frame with an ack echoing the payload.
func echoAck(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.AckID == 0 {
			continue
		}
		_ = conn.WriteJSON(Frame{Type: FrameAck, AckID: frame.AckID, Payload: frame.Payload})
	}
}

func connect(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
}

func TestConnectPresentsBearerToken(t *testing.T) {
	srv := newSocketServer(t, echoAck)
	m := NewManager(srv.wsURL(), func() string { return "tok123" })
	connect(t, m)
	defer m.Close()

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Equal(t, "Bearer tok123", srv.authHeader)
}

func TestConnectStateTransitions(t *testing.T) {
	srv := newSocketServer(t, echoAck)
	m := NewManager(srv.wsURL(), nil)

	var mu sync.Mutex
	var seen []State
	off := m.SubscribeState(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer off()

	connect(t, m)
	assert.Equal(t, StateConnected, m.State())

	// A second Connect while connected is a no-op.
	require.NoError(t, m.Connect(context.Background()))

	m.Close()
	assert.Equal(t, StateDisconnected, m.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, seen)
}

func TestConnectFailureReturnsToDisconnected(t *testing.T) {
	m := NewManager("ws://127.0.0.1:0/socket", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, m.Connect(ctx))
	assert.Equal(t, StateDisconnected, m.State())
}

func TestRequestResolvesWithAckPayload(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn) {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		_ = conn.WriteJSON(Frame{Type: FrameAck, AckID: frame.AckID, Payload: json.RawMessage(`{"answer":42}`)})
		echoAck(conn)
	})
	m := NewManager(srv.wsURL(), nil)
	connect(t, m)
	defer m.Close()

	payload, err := m.Request(context.Background(), EventListMessages, ListMessagesPayload{ConversationID: "c1", Limit: 50})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(payload))
}

func TestRequestSurfacesAckError(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn) {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		_ = conn.WriteJSON(Frame{Type: FrameAck, AckID: frame.AckID, Error: "not a participant"})
		echoAck(conn)
	})
	m := NewManager(srv.wsURL(), nil)
	connect(t, m)
	defer m.Close()

	_, err := m.Request(context.Background(), EventListMessages, ListMessagesPayload{ConversationID: "c1"})
	var ackErr *AckError
	require.ErrorAs(t, err, &ackErr)
	assert.Equal(t, "not a participant", ackErr.Reason)
}

func TestRequestTimeoutCleansPending(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn) {
		// Swallow requests without acknowledging.
		for {
			var frame Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
		}
	})
	m := NewManager(srv.wsURL(), nil)
	connect(t, m)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := m.Request(ctx, EventListMessages, ListMessagesPayload{ConversationID: "c1"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.pending, "expired request leaves no pending entry")
}

func TestEmitAndRequestWhileDisconnected(t *testing.T) {
	m := NewManager("ws://127.0.0.1:0/socket", nil)

	assert.ErrorIs(t, m.Emit(EventMarkRead, MarkReadPayload{ConversationID: "c1"}), ErrNotConnected)

	_, err := m.Request(context.Background(), EventListMessages, ListMessagesPayload{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSubscribeReceivesPushedEvents(t *testing.T) {
	push := make(chan Frame, 1)
	srv := newSocketServer(t, func(conn *websocket.Conn) {
		frame := <-push
		_ = conn.WriteJSON(frame)
		echoAck(conn)
	})
	m := NewManager(srv.wsURL(), nil)
	connect(t, m)
	defer m.Close()

	got := make(chan json.RawMessage, 1)
	off := m.Subscribe(EventNewMessage, func(payload json.RawMessage) {
		got <- payload
	})
	defer off()

	push <- Frame{Type: EventNewMessage, Payload: json.RawMessage(`{"message":{"id":"m1"}}`)}

	select {
	case payload := <-got:
		assert.JSONEq(t, `{"message":{"id":"m1"}}`, string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("push never reached the handler")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv := newSocketServer(t, echoAck)
	m := NewManager(srv.wsURL(), nil)
	connect(t, m)
	defer m.Close()

	off := m.Subscribe(EventNewMessage, func(json.RawMessage) {
		t.Error("handler called after unsubscribe")
	})
	off()

	m.mu.Lock()
	remaining := len(m.handlers[EventNewMessage])
	m.mu.Unlock()
	assert.Zero(t, remaining)
}

func TestServerDropFailsInFlightRequests(t *testing.T) {
	srv := newSocketServer(t, func(conn *websocket.Conn) {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		// Drop the connection instead of acknowledging.
		conn.Close()
	})
	m := NewManager(srv.wsURL(), nil)
	connect(t, m)

	off := m.Subscribe(EventNewMessage, func(json.RawMessage) {})
	defer off()

	_, err := m.Request(context.Background(), EventListMessages, ListMessagesPayload{ConversationID: "c1"})
	require.ErrorIs(t, err, ErrClosed)

	require.Eventually(t, func() bool {
		return m.State() == StateDisconnected
	}, 2*time.Second, 10*time.Millisecond)

	// A network drop keeps subscriptions so the owner can reconnect later.
	m.mu.Lock()
	remaining := len(m.handlers[EventNewMessage])
	m.mu.Unlock()
	assert.Equal(t, 1, remaining)
}
