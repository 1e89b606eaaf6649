package models

import "time"

// Post is a display record fetched wholesale from the posts endpoints.
type Post struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Content       string    `db:"content" json:"content"`
	AuthorID      string    `db:"author_id" json:"authorId"`
	Community     string    `db:"community" json:"community"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	VotesCount    int       `db:"votes_count" json:"votesCount"`
	CommentsCount int       `db:"comments_count" json:"commentsCount"`
	ImageURL      string    `db:"image_url" json:"imageUrl,omitempty"`
	Link          string    `db:"link" json:"link,omitempty"`
	IsBookmarked  bool      `db:"is_bookmarked" json:"isBookmarked"`
}

// Comment belongs to a post.
type Comment struct {
	ID         string    `db:"id" json:"id"`
	PostID     string    `db:"post_id" json:"postId"`
	AuthorID   string    `db:"author_id" json:"authorId"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	VotesCount int       `db:"votes_count" json:"votesCount"`
}

// Community is a display record for a community listing.
type Community struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	IconURL      string    `db:"icon_url" json:"iconUrl,omitempty"`
	MembersCount int       `db:"members_count" json:"membersCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	IsJoined     bool      `db:"is_joined" json:"isJoined"`
}
