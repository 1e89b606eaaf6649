package widgets

import (
	"context"
	"sync"

	"agora/internal/observability"
)

// Direction is the user's vote on a post.
type Direction string

const (
	VoteUp   Direction = "up"
	VoteDown Direction = "down"
	VoteNone Direction = ""
)

// VoteWidget tracks one post's vote counter. Clicking the same direction
// twice removes the vote; clicking the opposite direction flips it.
type VoteWidget struct {
	api    API
	postID string

	mu       sync.Mutex
	votes    int
	userVote Direction
	inflight bool
}

// NewVoteWidget builds a widget seeded with the fetched counter and the
// user's current vote.
func NewVoteWidget(api API, postID string, votes int, userVote Direction) *VoteWidget {
	return &VoteWidget{api: api, postID: postID, votes: votes, userVote: userVote}
}

// Vote applies the toggle optimistically and issues the request. On failure
// the pre-action state is restored and the error returned.
func (w *VoteWidget) Vote(ctx context.Context, dir Direction) error {
	if dir != VoteUp && dir != VoteDown {
		return nil
	}

	w.mu.Lock()
	if w.inflight {
		w.mu.Unlock()
		return ErrOperationInFlight
	}
	prevVotes, prevUserVote := w.votes, w.userVote

	var next Direction
	switch {
	case w.userVote == dir:
		next = VoteNone
		if dir == VoteUp {
			w.votes--
		} else {
			w.votes++
		}
	case w.userVote != VoteNone:
		next = dir
		if dir == VoteUp {
			w.votes += 2
		} else {
			w.votes -= 2
		}
	default:
		next = dir
		if dir == VoteUp {
			w.votes++
		} else {
			w.votes--
		}
	}
	w.userVote = next
	w.inflight = true
	w.mu.Unlock()

	body := map[string]string{"direction": string(next)}
	if next == VoteNone {
		body["direction"] = "none"
	}
	err := w.api.Post(ctx, "/posts/"+w.postID+"/vote", body, nil)

	w.mu.Lock()
	w.inflight = false
	if err != nil {
		w.votes, w.userVote = prevVotes, prevUserVote
	}
	w.mu.Unlock()

	if err != nil {
		observability.IncOptimisticOp("vote", "reverted")
		return err
	}
	observability.IncOptimisticOp("vote", "confirmed")
	return nil
}

// Votes returns the current counter.
func (w *VoteWidget) Votes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.votes
}

// UserVote returns the user's current vote.
func (w *VoteWidget) UserVote() Direction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.userVote
}
