package feed

import (
	"math"
	"sort"
	"time"

	"agora/internal/models"
)

// SortMode selects the feed ordering.
type SortMode string

const (
	SortHotMode SortMode = "hot"
	SortNewMode SortMode = "new"
	SortTopMode SortMode = "top"
)

// HotScore ranks a post by votes decayed by age:
// votes / (hoursSinceCreation + 2)^1.8.
func HotScore(post models.Post, now time.Time) float64 {
	hours := now.Sub(post.CreatedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return float64(post.VotesCount) / math.Pow(hours+2, 1.8)
}

// SortPosts returns a newly ordered copy of posts. All orderings are stable:
// ties retain fetch order.
func SortPosts(posts []models.Post, mode SortMode, now time.Time) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)

	switch mode {
	case SortNewMode:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortTopMode:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].VotesCount > out[j].VotesCount
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return HotScore(out[i], now) > HotScore(out[j], now)
		})
	}
	return out
}
