package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agora/internal/models"
)

// MessageRepository abstracts direct-message persistence.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID, receiverID, content string) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message under a server-assigned id.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID, receiverID, content string) (models.Message, error) {
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content, msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListForConversation returns the newest messages of a conversation in
// chronological order.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, conversation_id, sender_id, receiver_id, content, created_at, read FROM (
            SELECT * FROM messages WHERE conversation_id=$1 ORDER BY created_at DESC LIMIT $2
        ) recent ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit)
	return msgs, err
}

// MarkRead flags every message addressed to the reader as read.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, readerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read=TRUE WHERE conversation_id=$1 AND receiver_id=$2 AND read=FALSE`,
		conversationID, readerID)
	return err
}
