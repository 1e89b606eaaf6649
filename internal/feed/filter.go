package feed

import (
	"strings"

	"agora/internal/models"
)

// FilterPosts keeps posts whose title, body, or community name contains the
// query, case-insensitively. An empty query keeps everything.
func FilterPosts(posts []models.Post, query string) []models.Post {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return posts
	}
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Content), query) ||
			strings.Contains(strings.ToLower(p.Community), query) {
			out = append(out, p)
		}
	}
	return out
}

// FilterCommunities keeps communities matching the query by name or
// description.
func FilterCommunities(communities []models.Community, query string) []models.Community {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return communities
	}
	out := make([]models.Community, 0, len(communities))
	for _, c := range communities {
		if strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Description), query) {
			out = append(out, c)
		}
	}
	return out
}

// FilterUsers keeps users matching the query by username or display name.
func FilterUsers(users []models.User, query string) []models.User {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return users
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), query) ||
			strings.Contains(strings.ToLower(u.DisplayName), query) {
			out = append(out, u)
		}
	}
	return out
}
