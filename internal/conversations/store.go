package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"agora/internal/channel"
	"agora/internal/models"
)

var (
	// ErrSelfConversation rejects starting a chat with oneself.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	// ErrNotAuthenticated rejects conversation operations without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// API is the slice of the REST client used for the initial list fetch.
type API interface {
	Get(ctx context.Context, path string, out any) error
}

// Identity exposes the current session.
type Identity interface {
	Current() models.Session
}

// Subscriber is the channel manager's event-subscription surface.
type Subscriber interface {
	Subscribe(event string, handler func(json.RawMessage)) func()
}

// Store is the client's authoritative conversation list, ordered by
// LastActivityAt descending. It mixes server-confirmed entries with locally
// created pending ones, tagged by Origin.
type Store struct {
	api      API
	identity Identity

	mu       sync.Mutex
	list     []models.Conversation
	activeID string
}

// NewStore builds an empty Store.
func NewStore(api API, identity Identity) *Store {
	return &Store{api: api, identity: identity}
}

// LoadInitial fetches the conversation list once at session start and selects
// the first conversation when none is selected yet.
func (s *Store) LoadInitial(ctx context.Context) error {
	if !s.identity.Current().Authenticated {
		return ErrNotAuthenticated
	}

	var fetched []models.Conversation
	if err := s.api.Get(ctx, "/api/conversations", &fetched); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range fetched {
		fetched[i].Origin = models.OriginExisting
	}
	s.list = fetched
	s.sortLocked()
	if s.activeID == "" && len(s.list) > 0 {
		s.activeID = s.list[0].ID
	}
	return nil
}

// UpsertFromEvent merges a pushed conversation into the store. Known entries
// are merged field-wise (last-write-wins per field, empty fields do not
// overwrite); unknown ones are added. A confirmed conversation that matches a
// pending entry's participant pair replaces it in place.
func (s *Store) UpsertFromEvent(patch models.Conversation) {
	patch.Origin = models.OriginExisting

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.list {
		if s.list[i].ID == patch.ID {
			mergeInto(&s.list[i], patch)
			s.sortLocked()
			return
		}
	}

	if idx := s.pendingPairIndexLocked(patch); idx >= 0 {
		wasActive := s.activeID == s.list[idx].ID
		s.list[idx] = patch
		if wasActive {
			s.activeID = patch.ID
		}
		s.sortLocked()
		return
	}

	s.list = append([]models.Conversation{patch}, s.list...)
	s.sortLocked()
}

// CreatePending starts a local conversation with another user. It rejects
// self-chat, reuses an existing conversation with the same participant
// instead of duplicating it, and otherwise prepends a pending entry under a
// locally unique id and selects it.
func (s *Store) CreatePending(otherUserID string) (models.Conversation, error) {
	sess := s.identity.Current()
	if !sess.Authenticated {
		return models.Conversation{}, ErrNotAuthenticated
	}
	if otherUserID == "" || otherUserID == sess.UserID {
		return models.Conversation{}, ErrSelfConversation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conv := range s.list {
		if conv.HasParticipant(otherUserID) && conv.HasParticipant(sess.UserID) {
			s.activeID = conv.ID
			return conv, nil
		}
	}

	conv := models.Conversation{
		ID:             "conv_" + uuid.NewString(),
		Participants:   []string{sess.UserID, otherUserID},
		LastActivityAt: time.Now(),
		Origin:         models.OriginPending,
	}
	s.list = append([]models.Conversation{conv}, s.list...)
	s.activeID = conv.ID
	s.sortLocked()
	return conv, nil
}

// ObserveMessage updates the store for an inbound message. Messages for
// unknown conversations synthesize a confirmed entry from the sender/receiver
// pair; a matching pending entry is promoted to the confirmed id.
func (s *Store) ObserveMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.list {
		if s.list[i].ID == msg.ConversationID {
			s.list[i].LastMessage = msg.Content
			s.list[i].LastActivityAt = msg.CreatedAt
			s.sortLocked()
			return
		}
	}

	conv := models.Conversation{
		ID:             msg.ConversationID,
		Participants:   []string{msg.SenderID, msg.ReceiverID},
		LastMessage:    msg.Content,
		LastActivityAt: msg.CreatedAt,
		Origin:         models.OriginExisting,
	}

	if idx := s.pendingPairIndexLocked(conv); idx >= 0 {
		wasActive := s.activeID == s.list[idx].ID
		s.list[idx] = conv
		if wasActive {
			s.activeID = conv.ID
		}
		s.sortLocked()
		return
	}

	s.list = append([]models.Conversation{conv}, s.list...)
	s.sortLocked()
}

// Select marks a conversation as active. Unknown ids are ignored.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.list {
		if conv.ID == id {
			s.activeID = id
			return
		}
	}
}

// Active returns the selected conversation, if any.
func (s *Store) Active() (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.list {
		if conv.ID == s.activeID {
			return conv, true
		}
	}
	return models.Conversation{}, false
}

// List returns a copy of the ordered conversation list.
func (s *Store) List() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conversation, len(s.list))
	copy(out, s.list)
	return out
}

// Attach subscribes the store to the channel's conversation events and
// returns a release func.
func (s *Store) Attach(sub Subscriber) func() {
	offConv := sub.Subscribe(channel.EventConversationUpdated, func(payload json.RawMessage) {
		var event channel.ConversationUpdatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("conversations: bad %s payload: %v", channel.EventConversationUpdated, err)
			return
		}
		s.UpsertFromEvent(event.Conversation)
	})
	offMsg := sub.Subscribe(channel.EventNewMessage, func(payload json.RawMessage) {
		var event channel.NewMessageEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("conversations: bad %s payload: %v", channel.EventNewMessage, err)
			return
		}
		s.ObserveMessage(event.Message)
	})
	return func() {
		offConv()
		offMsg()
	}
}

// pendingPairIndexLocked finds a pending conversation covering the same
// participant pair as conv, or -1.
func (s *Store) pendingPairIndexLocked(conv models.Conversation) int {
	for i := range s.list {
		if s.list[i].Origin == models.OriginPending && s.list[i].SamePair(conv) {
			return i
		}
	}
	return -1
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.list, func(i, j int) bool {
		return s.list[i].LastActivityAt.After(s.list[j].LastActivityAt)
	})
}

func mergeInto(dst *models.Conversation, patch models.Conversation) {
	if len(patch.Participants) == 2 {
		dst.Participants = patch.Participants
	}
	if patch.LastMessage != "" {
		dst.LastMessage = patch.LastMessage
	}
	if !patch.LastActivityAt.IsZero() {
		dst.LastActivityAt = patch.LastActivityAt
	}
	dst.Origin = models.OriginExisting
}
