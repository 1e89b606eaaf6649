package widgets

import (
	"context"
	"sync"

	"agora/internal/observability"
)

// BookmarkToggle tracks one post's bookmark flag.
type BookmarkToggle struct {
	api      API
	identity Identity
	postID   string

	mu         sync.Mutex
	bookmarked bool
	inflight   bool
}

// NewBookmarkToggle builds a toggle seeded with the fetched flag.
func NewBookmarkToggle(api API, identity Identity, postID string, bookmarked bool) *BookmarkToggle {
	return &BookmarkToggle{api: api, identity: identity, postID: postID, bookmarked: bookmarked}
}

// Toggle flips the flag optimistically and issues the request, reverting on
// failure. Without a session the toggle is a silent no-op: bookmarking is
// simply unavailable in read-only mode.
func (b *BookmarkToggle) Toggle(ctx context.Context) error {
	if !b.identity.Current().Authenticated {
		return nil
	}

	b.mu.Lock()
	if b.inflight {
		b.mu.Unlock()
		return ErrOperationInFlight
	}
	prev := b.bookmarked
	b.bookmarked = !prev
	b.inflight = true
	b.mu.Unlock()

	err := b.api.Post(ctx, "/bookmark/"+b.postID+"/bookmark", nil, nil)

	b.mu.Lock()
	b.inflight = false
	if err != nil {
		b.bookmarked = prev
	}
	b.mu.Unlock()

	if err != nil {
		observability.IncOptimisticOp("bookmark", "reverted")
		return err
	}
	observability.IncOptimisticOp("bookmark", "confirmed")
	return nil
}

// Bookmarked returns the current flag.
func (b *BookmarkToggle) Bookmarked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bookmarked
}
