package widgets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agora/internal/mocks"
	"agora/internal/models"
)

type staticIdentity struct {
	session models.Session
}

func (s staticIdentity) Current() models.Session { return s.session }

func loggedIn(userID string) staticIdentity {
	return staticIdentity{session: models.Session{UserID: userID, Authenticated: true}}
}

func TestFormatCount(t *testing.T) {
	cases := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1.0K",
		1532:    "1.5K",
		999999:  "1000.0K",
		2400000: "2.4M",
		-42:     "-42",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCount(in), "count %d", in)
	}
}

func TestBookmarkToggleAndRevert(t *testing.T) {
	api := new(mocks.APIMock)
	api.On("Post", mock.Anything, "/bookmark/p1/bookmark", nil, nil).Return(nil).Once()
	api.On("Post", mock.Anything, "/bookmark/p1/bookmark", nil, nil).Return(errors.New("boom")).Once()

	b := NewBookmarkToggle(api, loggedIn("u1"), "p1", false)

	require.NoError(t, b.Toggle(context.Background()))
	assert.True(t, b.Bookmarked())

	require.Error(t, b.Toggle(context.Background()))
	assert.True(t, b.Bookmarked(), "failed toggle reverts to previous state")
}

func TestBookmarkToggleNoOpWithoutSession(t *testing.T) {
	api := new(mocks.APIMock)
	b := NewBookmarkToggle(api, staticIdentity{}, "p1", false)

	require.NoError(t, b.Toggle(context.Background()))
	assert.False(t, b.Bookmarked(), "read-only mode leaves the flag untouched")
	api.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMembershipTogglePicksAction(t *testing.T) {
	api := new(mocks.APIMock)
	api.On("Post", mock.Anything, "/communities/c1/join", nil, nil).Return(nil).Once()
	api.On("Post", mock.Anything, "/communities/c1/leave", nil, nil).Return(nil).Once()

	m := NewMembershipToggle(api, "c1", false)

	require.NoError(t, m.Toggle(context.Background()))
	assert.True(t, m.Joined())

	require.NoError(t, m.Toggle(context.Background()))
	assert.False(t, m.Joined())
	api.AssertExpectations(t)
}

func TestFollowButtonRejectsSelf(t *testing.T) {
	api := new(mocks.APIMock)
	f := NewFollowButton(api, staticIdentity{session: models.Session{UserID: "u1", Authenticated: true}}, "u1", false, 3)

	assert.ErrorIs(t, f.Toggle(context.Background()), ErrSelfFollow)
	api.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFollowButtonCountsFollowers(t *testing.T) {
	api := new(mocks.APIMock)
	api.On("Post", mock.Anything, "/users/u2/follow", nil, nil).Return(nil)

	f := NewFollowButton(api, staticIdentity{session: models.Session{UserID: "u1", Authenticated: true}}, "u2", false, 3)

	require.NoError(t, f.Toggle(context.Background()))
	assert.True(t, f.Following())
	assert.Equal(t, 4, f.Followers())

	require.NoError(t, f.Toggle(context.Background()))
	assert.False(t, f.Following())
	assert.Equal(t, 3, f.Followers())
}

func TestFollowButtonRevertsOnFailure(t *testing.T) {
	api := new(mocks.APIMock)
	api.On("Post", mock.Anything, "/users/u2/follow", nil, nil).Return(errors.New("boom"))

	f := NewFollowButton(api, staticIdentity{session: models.Session{UserID: "u1", Authenticated: true}}, "u2", true, 10)

	require.Error(t, f.Toggle(context.Background()))
	assert.True(t, f.Following())
	assert.Equal(t, 10, f.Followers())
}
