package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/models"
)

func post(id string, votes int, age time.Duration, now time.Time) models.Post {
	return models.Post{ID: id, Title: id, VotesCount: votes, CreatedAt: now.Add(-age)}
}

func ids(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestHotScoreDecaysWithAge(t *testing.T) {
	now := time.Now()
	fresh := post("fresh", 10, time.Hour, now)
	stale := post("stale", 10, 48*time.Hour, now)

	assert.Greater(t, HotScore(fresh, now), HotScore(stale, now))
}

func TestHotScoreClampsFutureTimestamps(t *testing.T) {
	now := time.Now()
	future := models.Post{ID: "future", VotesCount: 8, CreatedAt: now.Add(time.Hour)}
	present := models.Post{ID: "present", VotesCount: 8, CreatedAt: now}

	assert.Equal(t, HotScore(present, now), HotScore(future, now))
}

func TestSortPostsHotPrefersFreshOverRaw(t *testing.T) {
	now := time.Now()
	// Fewer votes but far fresher should outrank a heavily voted old post.
	posts := []models.Post{
		post("old-heavy", 100, 72*time.Hour, now),
		post("new-light", 20, time.Hour, now),
	}

	sorted := SortPosts(posts, SortHotMode, now)
	assert.Equal(t, []string{"new-light", "old-heavy"}, ids(sorted))
}

func TestSortPostsHotHeavyVotesWinOverSlightFreshness(t *testing.T) {
	now := time.Now()
	posts := []models.Post{
		post("b", 10, time.Minute, now),
		post("a", 100, time.Hour, now),
	}

	sorted := SortPosts(posts, SortHotMode, now)
	assert.Equal(t, []string{"a", "b"}, ids(sorted))
}

func TestSortPostsNew(t *testing.T) {
	now := time.Now()
	posts := []models.Post{
		post("older", 50, 2*time.Hour, now),
		post("newest", 1, time.Minute, now),
		post("oldest", 99, 3*time.Hour, now),
	}

	sorted := SortPosts(posts, SortNewMode, now)
	assert.Equal(t, []string{"newest", "older", "oldest"}, ids(sorted))
}

func TestSortPostsTop(t *testing.T) {
	now := time.Now()
	posts := []models.Post{
		post("mid", 5, time.Hour, now),
		post("high", 50, time.Hour, now),
		post("low", -2, time.Hour, now),
	}

	sorted := SortPosts(posts, SortTopMode, now)
	assert.Equal(t, []string{"high", "mid", "low"}, ids(sorted))
}

func TestSortPostsStableOnTies(t *testing.T) {
	now := time.Now()
	posts := []models.Post{
		post("first", 10, time.Hour, now),
		post("second", 10, time.Hour, now),
		post("third", 10, time.Hour, now),
	}

	for _, mode := range []SortMode{SortHotMode, SortNewMode, SortTopMode} {
		sorted := SortPosts(posts, mode, now)
		assert.Equal(t, []string{"first", "second", "third"}, ids(sorted), "mode %s", mode)
	}
}

func TestSortPostsDoesNotModifyInput(t *testing.T) {
	now := time.Now()
	posts := []models.Post{
		post("a", 1, 3*time.Hour, now),
		post("b", 99, time.Hour, now),
	}

	sorted := SortPosts(posts, SortTopMode, now)
	require.Equal(t, "b", sorted[0].ID)
	assert.Equal(t, "a", posts[0].ID)
}
