package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agora/internal/models"
)

var ErrCommunityNotFound = errors.New("community not found")

// CommunityRepository abstracts community and membership persistence.
type CommunityRepository interface {
	List(ctx context.Context, viewerID string) ([]models.Community, error)
	ListJoined(ctx context.Context, userID string) ([]models.Community, error)
	Create(ctx context.Context, community models.Community) (models.Community, error)
	Join(ctx context.Context, communityID, userID string) error
	Leave(ctx context.Context, communityID, userID string) error
}

// CommunityRepo is a sqlx implementation of CommunityRepository.
type CommunityRepo struct {
	db *sqlx.DB
}

// NewCommunityRepo constructs a CommunityRepo.
func NewCommunityRepo(db *sqlx.DB) *CommunityRepo {
	return &CommunityRepo{db: db}
}

const communityColumns = `c.id, c.name, c.description, c.icon_url, c.members_count, c.created_at,
    EXISTS(SELECT 1 FROM community_members m WHERE m.community_id=c.id AND m.user_id=$1) AS is_joined`

// List returns all communities with the viewer's membership flag.
func (r *CommunityRepo) List(ctx context.Context, viewerID string) ([]models.Community, error) {
	var communities []models.Community
	query := `SELECT ` + communityColumns + ` FROM communities c ORDER BY c.members_count DESC, c.name ASC`
	err := r.db.SelectContext(ctx, &communities, query, viewerID)
	return communities, err
}

// ListJoined returns the communities the user belongs to.
func (r *CommunityRepo) ListJoined(ctx context.Context, userID string) ([]models.Community, error) {
	var communities []models.Community
	query := `SELECT ` + communityColumns + ` FROM communities c
        JOIN community_members m ON m.community_id = c.id AND m.user_id=$1
        ORDER BY c.name ASC`
	err := r.db.SelectContext(ctx, &communities, query, userID)
	return communities, err
}

// Create stores a community under a server-assigned id.
func (r *CommunityRepo) Create(ctx context.Context, community models.Community) (models.Community, error) {
	community.ID = uuid.NewString()
	community.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO communities (id, name, description, icon_url, created_at) VALUES ($1, $2, $3, $4, $5)`,
		community.ID, community.Name, community.Description, community.IconURL, community.CreatedAt)
	if err != nil {
		return models.Community{}, err
	}
	return community, nil
}

// Join adds the user and bumps the member counter. Joining twice is a no-op.
func (r *CommunityRepo) Join(ctx context.Context, communityID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO community_members (community_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		communityID, userID)
	if err != nil {
		return err
	}
	added, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if added == 0 {
		return nil
	}
	return r.recount(ctx, communityID)
}

// Leave removes the user and adjusts the member counter.
func (r *CommunityRepo) Leave(ctx context.Context, communityID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM community_members WHERE community_id=$1 AND user_id=$2`, communityID, userID)
	if err != nil {
		return err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if removed == 0 {
		return nil
	}
	return r.recount(ctx, communityID)
}

func (r *CommunityRepo) recount(ctx context.Context, communityID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE communities SET members_count = (SELECT COUNT(*) FROM community_members WHERE community_id=$1) WHERE id=$1`,
		communityID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCommunityNotFound
	}
	return err
}

// CommentRepository abstracts comment persistence.
type CommentRepository interface {
	ListForPost(ctx context.Context, postID string) ([]models.Comment, error)
	Create(ctx context.Context, postID, authorID, content string) (models.Comment, error)
}

// CommentRepo is a sqlx implementation of CommentRepository.
type CommentRepo struct {
	db *sqlx.DB
}

// NewCommentRepo constructs a CommentRepo.
func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// ListForPost returns a post's comments in chronological order.
func (r *CommentRepo) ListForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	query := `SELECT id, post_id, author_id, content, created_at, votes_count FROM comments
        WHERE post_id=$1 ORDER BY created_at ASC`
	err := r.db.SelectContext(ctx, &comments, query, postID)
	return comments, err
}

// Create stores a comment and bumps the post's comment counter.
func (r *CommentRepo) Create(ctx context.Context, postID, authorID, content string) (models.Comment, error) {
	comment := models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.PostID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err != nil {
		return models.Comment{}, err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id=$1`, postID)
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}
