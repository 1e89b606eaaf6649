package widgets

import (
	"context"
	"sync"

	"agora/internal/observability"
)

// MembershipToggle tracks whether the current user has joined a community.
type MembershipToggle struct {
	api         API
	communityID string

	mu       sync.Mutex
	joined   bool
	inflight bool
}

// NewMembershipToggle builds a toggle seeded with the fetched flag.
func NewMembershipToggle(api API, communityID string, joined bool) *MembershipToggle {
	return &MembershipToggle{api: api, communityID: communityID, joined: joined}
}

// Toggle joins or leaves the community optimistically, reverting on failure.
func (m *MembershipToggle) Toggle(ctx context.Context) error {
	m.mu.Lock()
	if m.inflight {
		m.mu.Unlock()
		return ErrOperationInFlight
	}
	prev := m.joined
	m.joined = !prev
	m.inflight = true
	action := "/join"
	if prev {
		action = "/leave"
	}
	m.mu.Unlock()

	err := m.api.Post(ctx, "/communities/"+m.communityID+action, nil, nil)

	m.mu.Lock()
	m.inflight = false
	if err != nil {
		m.joined = prev
	}
	m.mu.Unlock()

	if err != nil {
		observability.IncOptimisticOp("membership", "reverted")
		return err
	}
	observability.IncOptimisticOp("membership", "confirmed")
	return nil
}

// Joined returns the current flag.
func (m *MembershipToggle) Joined() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joined
}
