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

var ErrPostNotFound = errors.New("post not found")

// PostRepository abstracts post, vote, and bookmark persistence.
type PostRepository interface {
	List(ctx context.Context, viewerID string) ([]models.Post, error)
	Get(ctx context.Context, id, viewerID string) (models.Post, error)
	Create(ctx context.Context, post models.Post) (models.Post, error)
	ApplyVote(ctx context.Context, postID, userID, direction string) (int, error)
	ToggleBookmark(ctx context.Context, postID, userID string) (bool, error)
	ListBookmarked(ctx context.Context, userID string) ([]models.Post, error)
}

// PostRepo is a sqlx implementation of PostRepository.
type PostRepo struct {
	db *sqlx.DB
}

// NewPostRepo constructs a PostRepo.
func NewPostRepo(db *sqlx.DB) *PostRepo {
	return &PostRepo{db: db}
}

const postColumns = `p.id, p.title, p.content, p.author_id, p.community, p.created_at,
    p.votes_count, p.comments_count, p.image_url, p.link,
    EXISTS(SELECT 1 FROM bookmarks b WHERE b.post_id=p.id AND b.user_id=$1) AS is_bookmarked`

// List returns all posts, newest first, with the viewer's bookmark flag.
func (r *PostRepo) List(ctx context.Context, viewerID string) ([]models.Post, error) {
	var posts []models.Post
	query := `SELECT ` + postColumns + ` FROM posts p ORDER BY p.created_at DESC`
	err := r.db.SelectContext(ctx, &posts, query, viewerID)
	return posts, err
}

// Get fetches one post.
func (r *PostRepo) Get(ctx context.Context, id, viewerID string) (models.Post, error) {
	var post models.Post
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id=$2`
	err := r.db.GetContext(ctx, &post, query, viewerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrPostNotFound
	}
	return post, err
}

// Create stores a post under a server-assigned id.
func (r *PostRepo) Create(ctx context.Context, post models.Post) (models.Post, error) {
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, author_id, community, created_at, image_url, link)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.Title, post.Content, post.AuthorID, post.Community, post.CreatedAt, post.ImageURL, post.Link)
	if err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// ApplyVote upserts or clears the user's vote and returns the recomputed
// counter. direction is "up", "down", or "none".
func (r *PostRepo) ApplyVote(ctx context.Context, postID, userID, direction string) (int, error) {
	if direction == "none" || direction == "" {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE post_id=$1 AND user_id=$2`, postID, userID); err != nil {
			return 0, err
		}
	} else {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO votes (post_id, user_id, direction) VALUES ($1, $2, $3)
             ON CONFLICT (post_id, user_id) DO UPDATE SET direction = EXCLUDED.direction`,
			postID, userID, direction)
		if err != nil {
			return 0, err
		}
	}

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(CASE direction WHEN 'up' THEN 1 ELSE -1 END), 0) FROM votes WHERE post_id=$1`, postID)
	if err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE posts SET votes_count=$2 WHERE id=$1`, postID, total); err != nil {
		return 0, err
	}
	return total, nil
}

// ToggleBookmark flips the bookmark row and reports the new state.
func (r *PostRepo) ToggleBookmark(ctx context.Context, postID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE post_id=$1 AND user_id=$2`, postID, userID)
	if err != nil {
		return false, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if deleted > 0 {
		return false, nil
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO bookmarks (post_id, user_id) VALUES ($1, $2)`, postID, userID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListBookmarked returns the user's bookmarked posts, newest first.
func (r *PostRepo) ListBookmarked(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	query := `SELECT ` + postColumns + ` FROM posts p
        JOIN bookmarks b ON b.post_id = p.id AND b.user_id=$1
        ORDER BY p.created_at DESC`
	err := r.db.SelectContext(ctx, &posts, query, userID)
	return posts, err
}
