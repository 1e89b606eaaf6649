package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"agora/internal/observability"
)

// State is the connection lifecycle of the channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

var (
	// ErrNotConnected is returned by Emit and Request while the channel is
	// down. Dependents degrade to read-only instead of failing hard.
	ErrNotConnected = errors.New("channel not connected")
	// ErrClosed is delivered to requests that were in flight when the
	// connection went away.
	ErrClosed = errors.New("channel closed")
)

// AckError is a server-reported failure inside an acknowledgement.
type AckError struct {
	Reason string
}

func (e *AckError) Error() string {
	return "ack error: " + e.Reason
}

const defaultRequestTimeout = 10 * time.Second

// Manager owns the single live socket connection for an authenticated
// session. No other component may open, close, or reopen the connection; the
// subscription surface is shared read-only.
type Manager struct {
	url   string
	token func() string

	mu        sync.Mutex
	conn      *websocket.Conn
	state     State
	pending   map[uint64]chan Frame
	handlers  map[string]map[uint64]func(json.RawMessage)
	stateSubs map[uint64]func(State)
	nextAck   uint64
	nextSub   uint64

	writeMu sync.Mutex
}

// NewManager builds a disconnected Manager. token provides the bearer token
// presented during the handshake.
func NewManager(socketURL string, token func() string) *Manager {
	return &Manager{
		url:       socketURL,
		token:     token,
		state:     StateDisconnected,
		pending:   make(map[uint64]chan Frame),
		handlers:  make(map[string]map[uint64]func(json.RawMessage)),
		stateSubs: make(map[uint64]func(State)),
	}
}

// State reports the current connection state. Safe to call at any time,
// including before the first Connect.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect dials the socket endpoint. Calling Connect while already connected
// is a no-op. There is no automatic reconnect: on network loss the manager
// transitions to disconnected and stays there until Connect is called again.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()
	m.notifyState(StateConnecting)

	header := http.Header{}
	if m.token != nil {
		if tok := m.token(); tok != "" {
			header.Set("Authorization", "Bearer "+tok)
		}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, m.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", m.url, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.state = StateConnected
	m.mu.Unlock()
	m.notifyState(StateConnected)
	observability.SetWSConnected(true)

	go m.readLoop(conn)
	return nil
}

// Close tears down the connection, fails all in-flight requests, and releases
// every subscription.
func (m *Manager) Close() {
	m.teardown(true)
}

// Emit sends a fire-and-forget event. While disconnected it returns
// ErrNotConnected rather than queueing; queued sends would outlive the
// session they belong to.
func (m *Manager) Emit(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	if err := m.write(Frame{Type: event, Payload: raw}); err != nil {
		return err
	}
	observability.IncWSEvent(event, "out")
	return nil
}

// Request sends an event that expects an acknowledgement and blocks until the
// ack arrives, the context expires, or the connection drops. Every request
// carries a deadline so a stalled call resolves to an error.
func (m *Manager) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	ctx, span := otel.Tracer("agora/channel").Start(ctx, "channel.request")
	defer span.End()
	span.SetAttributes(attribute.String("channel.event", event))

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}

	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	m.nextAck++
	ackID := m.nextAck
	ch := make(chan Frame, 1)
	m.pending[ackID] = ch
	m.mu.Unlock()

	if err := m.write(Frame{Type: event, AckID: ackID, Payload: raw}); err != nil {
		m.dropPending(ackID)
		return nil, err
	}
	observability.IncWSEvent(event, "out")

	select {
	case <-ctx.Done():
		m.dropPending(ackID)
		return nil, fmt.Errorf("%s: %w", event, ctx.Err())
	case frame, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if frame.Error != "" {
			return nil, &AckError{Reason: frame.Error}
		}
		return frame.Payload, nil
	}
}

// Subscribe registers a handler for an inbound event and returns its
// unsubscribe func. Handlers run on the read goroutine and must not block.
func (m *Manager) Subscribe(event string, handler func(json.RawMessage)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[uint64]func(json.RawMessage))
	}
	m.nextSub++
	id := m.nextSub
	m.handlers[event][id] = handler
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[event], id)
	}
}

// SubscribeState registers a connection-state observer.
func (m *Manager) SubscribeState(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	id := m.nextSub
	m.stateSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.stateSubs, id)
	}
}

func (m *Manager) write(frame Frame) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected || conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s: %w", frame.Type, err)
	}
	return nil
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("channel read error: %v", err)
			}
			m.teardown(false)
			return
		}

		if frame.Type == FrameAck {
			m.mu.Lock()
			ch, ok := m.pending[frame.AckID]
			if ok {
				delete(m.pending, frame.AckID)
			}
			m.mu.Unlock()
			if ok {
				ch <- frame
			}
			continue
		}

		observability.IncWSEvent(frame.Type, "in")
		m.mu.Lock()
		snapshot := make([]func(json.RawMessage), 0, len(m.handlers[frame.Type]))
		for _, h := range m.handlers[frame.Type] {
			snapshot = append(snapshot, h)
		}
		m.mu.Unlock()
		for _, h := range snapshot {
			h(frame.Payload)
		}
	}
}

func (m *Manager) dropPending(ackID uint64) {
	m.mu.Lock()
	delete(m.pending, ackID)
	m.mu.Unlock()
}

// teardown closes the connection and fails in-flight requests. Subscriptions
// are released only on an explicit Close; a network drop keeps them so the
// owner can observe the disconnected state.
func (m *Manager) teardown(explicit bool) {
	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	alreadyDown := m.state == StateDisconnected
	m.state = StateDisconnected
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
	if explicit {
		m.handlers = make(map[string]map[uint64]func(json.RawMessage))
	}
	m.mu.Unlock()

	observability.SetWSConnected(false)
	if !alreadyDown {
		m.notifyState(StateDisconnected)
	}
	if explicit {
		m.mu.Lock()
		m.stateSubs = make(map[uint64]func(State))
		m.mu.Unlock()
	}
}

func (m *Manager) notifyState(s State) {
	m.mu.Lock()
	snapshot := make([]func(State), 0, len(m.stateSubs))
	for _, fn := range m.stateSubs {
		snapshot = append(snapshot, fn)
	}
	m.mu.Unlock()
	for _, fn := range snapshot {
		fn(s)
	}
}
