package widgets

import (
	"context"
	"sync"

	"agora/internal/models"
	"agora/internal/observability"
)

// Identity exposes the current session.
type Identity interface {
	Current() models.Session
}

// FollowButton tracks whether the current user follows another user, with an
// optimistic follower counter.
type FollowButton struct {
	api      API
	identity Identity
	userID   string

	mu        sync.Mutex
	following bool
	followers int
	inflight  bool
}

// NewFollowButton builds a button seeded with the fetched profile state.
func NewFollowButton(api API, identity Identity, userID string, following bool, followers int) *FollowButton {
	return &FollowButton{api: api, identity: identity, userID: userID, following: following, followers: followers}
}

// Toggle follows or unfollows. Following oneself is rejected before any
// network call.
func (f *FollowButton) Toggle(ctx context.Context) error {
	if f.identity.Current().UserID == f.userID {
		return ErrSelfFollow
	}

	f.mu.Lock()
	if f.inflight {
		f.mu.Unlock()
		return ErrOperationInFlight
	}
	prevFollowing, prevFollowers := f.following, f.followers
	f.following = !prevFollowing
	if f.following {
		f.followers++
	} else {
		f.followers--
	}
	f.inflight = true
	f.mu.Unlock()

	err := f.api.Post(ctx, "/users/"+f.userID+"/follow", nil, nil)

	f.mu.Lock()
	f.inflight = false
	if err != nil {
		f.following, f.followers = prevFollowing, prevFollowers
	}
	f.mu.Unlock()

	if err != nil {
		observability.IncOptimisticOp("follow", "reverted")
		return err
	}
	observability.IncOptimisticOp("follow", "confirmed")
	return nil
}

// Following returns the current flag.
func (f *FollowButton) Following() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.following
}

// Followers returns the current counter.
func (f *FollowButton) Followers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.followers
}
