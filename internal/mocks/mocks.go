package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"agora/internal/models"
	"agora/internal/stubserver/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateOrGet(ctx context.Context, userID, otherID string) (models.Conversation, error) {
	args := m.Called(ctx, userID, otherID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, id string) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, id, userID string) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) Touch(ctx context.Context, id, lastMessage string, at time.Time) error {
	args := m.Called(ctx, id, lastMessage, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID, receiverID, content string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, receiverID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID, readerID string) error {
	args := m.Called(ctx, conversationID, readerID)
	return args.Error(0)
}

type PostRepositoryMock struct {
	mock.Mock
}

func (m *PostRepositoryMock) List(ctx context.Context, viewerID string) ([]models.Post, error) {
	args := m.Called(ctx, viewerID)
	var posts []models.Post
	if val := args.Get(0); val != nil {
		posts = val.([]models.Post)
	}
	return posts, args.Error(1)
}

func (m *PostRepositoryMock) Get(ctx context.Context, id, viewerID string) (models.Post, error) {
	args := m.Called(ctx, id, viewerID)
	var post models.Post
	if val := args.Get(0); val != nil {
		post = val.(models.Post)
	}
	return post, args.Error(1)
}

func (m *PostRepositoryMock) Create(ctx context.Context, post models.Post) (models.Post, error) {
	args := m.Called(ctx, post)
	var created models.Post
	if val := args.Get(0); val != nil {
		created = val.(models.Post)
	}
	return created, args.Error(1)
}

func (m *PostRepositoryMock) ApplyVote(ctx context.Context, postID, userID, direction string) (int, error) {
	args := m.Called(ctx, postID, userID, direction)
	return args.Int(0), args.Error(1)
}

func (m *PostRepositoryMock) ToggleBookmark(ctx context.Context, postID, userID string) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *PostRepositoryMock) ListBookmarked(ctx context.Context, userID string) ([]models.Post, error) {
	args := m.Called(ctx, userID)
	var posts []models.Post
	if val := args.Get(0); val != nil {
		posts = val.([]models.Post)
	}
	return posts, args.Error(1)
}

type CommunityRepositoryMock struct {
	mock.Mock
}

func (m *CommunityRepositoryMock) List(ctx context.Context, viewerID string) ([]models.Community, error) {
	args := m.Called(ctx, viewerID)
	var list []models.Community
	if val := args.Get(0); val != nil {
		list = val.([]models.Community)
	}
	return list, args.Error(1)
}

func (m *CommunityRepositoryMock) ListJoined(ctx context.Context, userID string) ([]models.Community, error) {
	args := m.Called(ctx, userID)
	var list []models.Community
	if val := args.Get(0); val != nil {
		list = val.([]models.Community)
	}
	return list, args.Error(1)
}

func (m *CommunityRepositoryMock) Create(ctx context.Context, community models.Community) (models.Community, error) {
	args := m.Called(ctx, community)
	var created models.Community
	if val := args.Get(0); val != nil {
		created = val.(models.Community)
	}
	return created, args.Error(1)
}

func (m *CommunityRepositoryMock) Join(ctx context.Context, communityID, userID string) error {
	args := m.Called(ctx, communityID, userID)
	return args.Error(0)
}

func (m *CommunityRepositoryMock) Leave(ctx context.Context, communityID, userID string) error {
	args := m.Called(ctx, communityID, userID)
	return args.Error(0)
}

type CommentRepositoryMock struct {
	mock.Mock
}

func (m *CommentRepositoryMock) ListForPost(ctx context.Context, postID string) ([]models.Comment, error) {
	args := m.Called(ctx, postID)
	var comments []models.Comment
	if val := args.Get(0); val != nil {
		comments = val.([]models.Comment)
	}
	return comments, args.Error(1)
}

func (m *CommentRepositoryMock) Create(ctx context.Context, postID, authorID, content string) (models.Comment, error) {
	args := m.Called(ctx, postID, authorID, content)
	var comment models.Comment
	if val := args.Get(0); val != nil {
		comment = val.(models.Comment)
	}
	return comment, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) EnsureUser(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Get(ctx context.Context, id, viewerID string) (models.User, error) {
	args := m.Called(ctx, id, viewerID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	args := m.Called(ctx, followerID, followeeID)
	return args.Bool(0), args.Error(1)
}

type APIMock struct {
	mock.Mock
}

func (m *APIMock) Get(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path, out)
	return args.Error(0)
}

func (m *APIMock) Post(ctx context.Context, path string, body any, out any) error {
	args := m.Called(ctx, path, body, out)
	return args.Error(0)
}

func (m *APIMock) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

type ChannelMock struct {
	mock.Mock
}

func (m *ChannelMock) Emit(event string, payload any) error {
	args := m.Called(event, payload)
	return args.Error(0)
}

func (m *ChannelMock) Request(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	args := m.Called(ctx, event, payload)
	var raw json.RawMessage
	if val := args.Get(0); val != nil {
		raw = val.(json.RawMessage)
	}
	return raw, args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.PostRepository = (*PostRepositoryMock)(nil)
var _ repositories.CommunityRepository = (*CommunityRepositoryMock)(nil)
var _ repositories.CommentRepository = (*CommentRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
