package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agora/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot create conversation with self")
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateOrGet(ctx context.Context, userID, otherID string) (models.Conversation, error)
	Get(ctx context.Context, id string) (models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	IsParticipant(ctx context.Context, id, userID string) (bool, error)
	Touch(ctx context.Context, id, lastMessage string, at time.Time) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

type conversationRow struct {
	ID             string    `db:"id"`
	User1ID        string    `db:"user1_id"`
	User2ID        string    `db:"user2_id"`
	LastMessage    string    `db:"last_message"`
	LastActivityAt time.Time `db:"last_activity_at"`
}

func (r conversationRow) toModel() models.Conversation {
	return models.Conversation{
		ID:             r.ID,
		Participants:   []string{r.User1ID, r.User2ID},
		LastMessage:    r.LastMessage,
		LastActivityAt: r.LastActivityAt,
		Origin:         models.OriginExisting,
	}
}

// CreateOrGet returns the conversation between two users, creating it when
// it does not exist yet. The pair is stored in sorted order so either
// direction resolves to the same row.
func (r *ConversationRepo) CreateOrGet(ctx context.Context, userID, otherID string) (models.Conversation, error) {
	if userID == otherID {
		return models.Conversation{}, ErrSelfConversation
	}
	pair := []string{userID, otherID}
	sort.Strings(pair)

	var row conversationRow
	query := `SELECT id, user1_id, user2_id, last_message, last_activity_at FROM conversations WHERE user1_id=$1 AND user2_id=$2`
	err := r.db.GetContext(ctx, &row, query, pair[0], pair[1])
	if err == nil {
		return row.toModel(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	row = conversationRow{ID: uuid.NewString(), User1ID: pair[0], User2ID: pair[1], LastActivityAt: time.Now()}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user1_id, user2_id, last_activity_at) VALUES ($1, $2, $3, $4)`,
		row.ID, row.User1ID, row.User2ID, row.LastActivityAt)
	if err != nil {
		return models.Conversation{}, err
	}
	return row.toModel(), nil
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, id string) (models.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT id, user1_id, user2_id, last_message, last_activity_at FROM conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, err
	}
	return row.toModel(), nil
}

// ListForUser returns the user's conversations, most recent activity first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	var rows []conversationRow
	query := `SELECT id, user1_id, user2_id, last_message, last_activity_at FROM conversations
        WHERE user1_id=$1 OR user2_id=$1
        ORDER BY last_activity_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	result := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, id, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`, id, userID)
	return exists, err
}

// Touch updates the preview fields after a new message.
func (r *ConversationRepo) Touch(ctx context.Context, id, lastMessage string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET last_message=$2, last_activity_at=$3 WHERE id=$1`, id, lastMessage, at)
	return err
}
