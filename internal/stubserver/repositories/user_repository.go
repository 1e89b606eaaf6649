package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agora/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts user and follow persistence.
type UserRepository interface {
	EnsureUser(ctx context.Context, username string) (models.User, error)
	Get(ctx context.Context, id, viewerID string) (models.User, error)
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

type userRow struct {
	ID          string `db:"id"`
	Username    string `db:"username"`
	DisplayName string `db:"display_name"`
	Followers   int    `db:"followers"`
	Following   int    `db:"following"`
}

// EnsureUser returns the user with that username, creating it on first
// login. The stub accepts any credentials.
func (r *UserRepo) EnsureUser(ctx context.Context, username string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, username, display_name, followers, following FROM users WHERE username=$1`, username)
	if err == nil {
		return models.User{ID: row.ID, Username: row.Username, DisplayName: row.DisplayName, Followers: row.Followers, Following: row.Following}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, err
	}

	user := models.User{ID: uuid.NewString(), Username: username, DisplayName: username}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name) VALUES ($1, $2, $3)`, user.ID, user.Username, user.DisplayName)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Get fetches a profile with the viewer's follow flag.
func (r *UserRepo) Get(ctx context.Context, id, viewerID string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, username, display_name, followers, following FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}

	var following bool
	err = r.db.GetContext(ctx, &following,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id=$1 AND followee_id=$2)`, viewerID, id)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		ID: row.ID, Username: row.Username, DisplayName: row.DisplayName,
		Followers: row.Followers, Following: row.Following, IsFollowing: following,
	}, nil
}

// ToggleFollow flips the follow edge and adjusts both counters, reporting the
// new state.
func (r *UserRepo) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id=$1 AND followee_id=$2`, followerID, followeeID)
	if err != nil {
		return false, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	following := deleted == 0
	if following {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)`, followerID, followeeID)
		if err != nil {
			return false, err
		}
	}

	delta := 1
	if !following {
		delta = -1
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET followers = followers + $2 WHERE id=$1`, followeeID, delta); err != nil {
		return false, err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET following = following + $2 WHERE id=$1`, followerID, delta); err != nil {
		return false, err
	}
	return following, nil
}
