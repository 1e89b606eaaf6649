package models

import "time"

// Origin tags where a conversation entry came from. Pending conversations
// exist only in client memory under a locally generated id.
type Origin string

const (
	OriginExisting Origin = "existing"
	OriginPending  Origin = "pending"
)

// Conversation is a direct-message thread between exactly two users.
type Conversation struct {
	ID             string    `db:"id" json:"id"`
	Participants   []string  `json:"participants"`
	LastMessage    string    `db:"last_message" json:"lastMessage"`
	LastActivityAt time.Time `db:"last_activity_at" json:"lastActivityAt"`
	Origin         Origin    `json:"origin"`
}

// HasParticipant reports whether userID is one of the two members.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the member that is not userID, or "" when the
// conversation does not include anyone else.
func (c Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// SamePair reports whether both conversations are between the same two users.
func (c Conversation) SamePair(other Conversation) bool {
	if len(c.Participants) != 2 || len(other.Participants) != 2 {
		return false
	}
	return c.HasParticipant(other.Participants[0]) && c.HasParticipant(other.Participants[1])
}

// Message is a single direct message. Messages with a server-assigned id are
// immutable except for the read flag; temp-id messages exist only until the
// send call resolves.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	ReceiverID     string    `db:"receiver_id" json:"receiverId"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	Read           bool      `db:"read" json:"read"`
}
