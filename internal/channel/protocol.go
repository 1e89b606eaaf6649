package channel

import (
	"encoding/json"

	"agora/internal/models"
)

// Event names spoken on the socket. Outbound requests are acknowledged with a
// FrameAck echoing the request's ack id; pushes carry no ack id.
const (
	EventMarkRead            = "MARK_READ"
	EventListMessages        = "LIST_MESSAGES"
	EventSendMessage         = "SEND_MESSAGE"
	EventNewMessage          = "NEW_MESSAGE"
	EventConversationUpdated = "CONVERSATION_UPDATED"

	FrameAck = "ACK"
)

// Frame is the wire format for every socket message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	AckID   uint64          `json:"ackId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MarkReadPayload asks the server to flag a conversation's messages as read.
type MarkReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// ListMessagesPayload requests message history for a conversation.
type ListMessagesPayload struct {
	ConversationID string `json:"conversationId"`
	Limit          int    `json:"limit"`
}

// ListMessagesResult is the ack payload for LIST_MESSAGES.
type ListMessagesResult struct {
	Messages []models.Message `json:"messages"`
}

// SendMessagePayload carries an outgoing message. TempID is the client-local
// id of the optimistic entry; the server never echoes it back.
type SendMessagePayload struct {
	ToUserID       string `json:"toUserId"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	TempID         string `json:"tempId"`
}

// SendMessageResult is the ack payload for SEND_MESSAGE.
type SendMessageResult struct {
	Message models.Message `json:"message"`
}

// NewMessageEvent is pushed to a message's recipient.
type NewMessageEvent struct {
	Message models.Message `json:"message"`
}

// ConversationUpdatedEvent is pushed to both participants when a conversation
// changes.
type ConversationUpdatedEvent struct {
	Conversation models.Conversation `json:"conversation"`
}
