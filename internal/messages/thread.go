package messages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agora/internal/channel"
	"agora/internal/models"
	"agora/internal/observability"
)

var (
	// ErrEmptyMessage rejects empty or whitespace-only text before any
	// network call.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSelfMessage rejects sending a message to oneself.
	ErrSelfMessage = errors.New("cannot send a message to yourself")
	// ErrNoConversation is returned when no conversation is loaded.
	ErrNoConversation = errors.New("no conversation loaded")
	// ErrNotAuthenticated rejects sends without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

const historyLimit = 50

// Channel is the slice of the channel manager the thread needs.
type Channel interface {
	Emit(event string, payload any) error
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
}

// Identity exposes the current session.
type Identity interface {
	Current() models.Session
}

// Subscriber is the channel manager's event-subscription surface.
type Subscriber interface {
	Subscribe(event string, handler func(json.RawMessage)) func()
}

// Thread holds the message list for the loaded conversation and keeps it
// consistent under optimistic send: an outgoing message is appended under a
// temp id immediately, then either replaced by the server's message or
// removed when the send fails. A temp entry never outlives its send call.
type Thread struct {
	ch       Channel
	identity Identity

	mu     sync.Mutex
	conv   models.Conversation
	loaded bool
	msgs   []models.Message
}

// NewThread builds an empty Thread.
func NewThread(ch Channel, identity Identity) *Thread {
	return &Thread{ch: ch, identity: identity}
}

// Load replaces the thread with the history of conv. Pending conversations
// have no server history: the list is cleared without network traffic. For
// confirmed conversations the server is also notified that the thread was
// read.
func (t *Thread) Load(ctx context.Context, conv models.Conversation) error {
	t.mu.Lock()
	t.conv = conv
	t.loaded = true
	t.msgs = nil
	t.mu.Unlock()

	if conv.Origin == models.OriginPending {
		return nil
	}

	t.MarkRead(conv.ID)

	payload, err := t.ch.Request(ctx, channel.EventListMessages, channel.ListMessagesPayload{
		ConversationID: conv.ID,
		Limit:          historyLimit,
	})
	if err != nil {
		return fmt.Errorf("load thread: %w", err)
	}

	var result channel.ListMessagesResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("decode thread: %w", err)
	}

	t.mu.Lock()
	if t.conv.ID == conv.ID {
		t.msgs = result.Messages
		t.sortLocked()
	}
	t.mu.Unlock()
	return nil
}

// Send validates text, appends an optimistic entry, and requests the send.
// On acknowledgement the temp entry is replaced by the server message
// verbatim; on failure or timeout it is removed and the error returned.
func (t *Thread) Send(ctx context.Context, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyMessage
	}
	sess := t.identity.Current()
	if !sess.Authenticated {
		return models.Message{}, ErrNotAuthenticated
	}

	t.mu.Lock()
	if !t.loaded {
		t.mu.Unlock()
		return models.Message{}, ErrNoConversation
	}
	conv := t.conv
	t.mu.Unlock()

	recipient := conv.OtherParticipant(sess.UserID)
	if recipient == "" || recipient == sess.UserID {
		return models.Message{}, ErrSelfMessage
	}

	temp := models.Message{
		ID:             "temp_" + uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       sess.UserID,
		ReceiverID:     recipient,
		Content:        text,
		CreatedAt:      time.Now(),
	}

	t.mu.Lock()
	t.msgs = append(t.msgs, temp)
	t.mu.Unlock()

	payload, err := t.ch.Request(ctx, channel.EventSendMessage, channel.SendMessagePayload{
		ToUserID:       recipient,
		Content:        text,
		ConversationID: conv.ID,
		TempID:         temp.ID,
	})
	if err != nil {
		t.remove(temp.ID)
		observability.IncOptimisticOp("send_message", "reverted")
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}

	var result channel.SendMessageResult
	if err := json.Unmarshal(payload, &result); err != nil || result.Message.ID == "" {
		t.remove(temp.ID)
		observability.IncOptimisticOp("send_message", "reverted")
		return models.Message{}, fmt.Errorf("send message: bad acknowledgement")
	}

	t.mu.Lock()
	replaced := false
	for i := range t.msgs {
		if t.msgs[i].ID == temp.ID {
			t.msgs[i] = result.Message
			replaced = true
			break
		}
	}
	if !replaced && t.conv.ID == result.Message.ConversationID {
		// Thread was reloaded mid-send; keep the confirmed message.
		t.msgs = append(t.msgs, result.Message)
	}
	t.sortLocked()
	t.mu.Unlock()

	observability.IncOptimisticOp("send_message", "confirmed")
	return result.Message, nil
}

// MarkRead tells the server the conversation was read. Fire-and-forget: read
// flags arrive via subsequent server data, so a failed emit is only logged.
func (t *Thread) MarkRead(conversationID string) {
	err := t.ch.Emit(channel.EventMarkRead, channel.MarkReadPayload{ConversationID: conversationID})
	if err != nil && !errors.Is(err, channel.ErrNotConnected) {
		log.Printf("mark read failed: %v", err)
	}
}

// HandleIncoming appends a pushed message when it targets the loaded
// conversation. Arrival order is irrelevant: the list is kept in
// non-decreasing CreatedAt order.
func (t *Thread) HandleIncoming(msg models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded || t.conv.ID != msg.ConversationID {
		return
	}
	for _, existing := range t.msgs {
		if existing.ID == msg.ID {
			return
		}
	}
	t.msgs = append(t.msgs, msg)
	t.sortLocked()
}

// Messages returns a copy of the thread in render order.
func (t *Thread) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Attach subscribes the thread to pushed messages and returns a release func.
func (t *Thread) Attach(sub Subscriber) func() {
	return sub.Subscribe(channel.EventNewMessage, func(payload json.RawMessage) {
		var event channel.NewMessageEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("messages: bad %s payload: %v", channel.EventNewMessage, err)
			return
		}
		t.HandleIncoming(event.Message)
	})
}

func (t *Thread) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.msgs {
		if t.msgs[i].ID == id {
			t.msgs = append(t.msgs[:i], t.msgs[i+1:]...)
			return
		}
	}
}

func (t *Thread) sortLocked() {
	sort.SliceStable(t.msgs, func(i, j int) bool {
		return t.msgs[i].CreatedAt.Before(t.msgs[j].CreatedAt)
	})
}
