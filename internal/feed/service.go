package feed

import (
	"context"
	"errors"
	"log"
	"strings"

	"agora/internal/models"
)

// ErrEmptyComment rejects blank comment text before any network call.
var ErrEmptyComment = errors.New("comment is empty")

// API is the slice of the REST client the feed uses.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Service fetches display lists from the REST API. It applies no caching and
// no retry policy; callers re-fetch per view. Undecodable list payloads
// degrade to empty results instead of crashing the caller.
type Service struct {
	api API
}

// NewService builds a Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// ListPosts fetches the home feed.
func (s *Service) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := s.api.Get(ctx, "/posts", &posts); err != nil {
		log.Printf("feed: list posts: %v", err)
		return nil, err
	}
	return posts, nil
}

// GetPost fetches a single post.
func (s *Service) GetPost(ctx context.Context, postID string) (models.Post, error) {
	var post models.Post
	if err := s.api.Get(ctx, "/posts/"+postID, &post); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// ListComments fetches the comments of a post.
func (s *Service) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := s.api.Get(ctx, "/comments/post/"+postID, &comments); err != nil {
		log.Printf("feed: list comments: %v", err)
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a comment and returns the stored record.
func (s *Service) CreateComment(ctx context.Context, postID, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, ErrEmptyComment
	}
	var comment models.Comment
	err := s.api.Post(ctx, "/comments/post/"+postID, map[string]string{"content": content}, &comment)
	if err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// ListCommunities fetches all communities.
func (s *Service) ListCommunities(ctx context.Context) ([]models.Community, error) {
	var communities []models.Community
	if err := s.api.Get(ctx, "/communities", &communities); err != nil {
		log.Printf("feed: list communities: %v", err)
		return nil, err
	}
	return communities, nil
}

// ListJoinedCommunities fetches the communities the current user belongs to.
func (s *Service) ListJoinedCommunities(ctx context.Context) ([]models.Community, error) {
	var communities []models.Community
	if err := s.api.Get(ctx, "/communities/me", &communities); err != nil {
		log.Printf("feed: list joined communities: %v", err)
		return nil, err
	}
	return communities, nil
}

// ListBookmarks fetches the user's bookmarked posts.
func (s *Service) ListBookmarks(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := s.api.Get(ctx, "/bookmark/profile/bookmarks", &posts); err != nil {
		log.Printf("feed: list bookmarks: %v", err)
		return nil, err
	}
	return posts, nil
}
