package stubserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agora/internal/channel"
	"agora/internal/mocks"
	"agora/internal/models"
)

func newSocketTestServer(t *testing.T, conversations *mocks.ConversationRepositoryMock, messages *mocks.MessageRepositoryMock) (*httptest.Server, *Authenticator, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := NewAuthenticator("test-secret", time.Hour)
	hub := NewHub()
	socket := NewSocketHandler(hub, auth, conversations, messages, nil)

	r := gin.New()
	r.GET("/socket", socket.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, auth, hub
}

func dialSocket(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func readAck(t *testing.T, conn *websocket.Conn, ackID uint64) channel.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame channel.Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == channel.FrameAck && frame.AckID == ackID {
			return frame
		}
	}
}

func TestSocketRejectsBadToken(t *testing.T) {
	srv, _, _ := newSocketTestServer(t, new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSendMessageAckNeverEchoesTempID(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)

	now := time.Now().UTC().Truncate(time.Second)
	conv := models.Conversation{ID: "c1", Participants: []string{"u1", "u2"}, LastActivityAt: now}
	stored := models.Message{ID: "m-server", ConversationID: "c1", SenderID: "u1", ReceiverID: "u2", Content: "hello", CreatedAt: now}

	conversations.On("CreateOrGet", mock.Anything, "u1", "u2").Return(conv, nil)
	conversations.On("Touch", mock.Anything, "c1", "hello", mock.Anything).Return(nil)
	messages.On("Create", mock.Anything, "c1", "u1", "u2", "hello").Return(stored, nil)

	srv, auth, _ := newSocketTestServer(t, conversations, messages)
	token, err := auth.GenerateToken("u1", "sam")
	require.NoError(t, err)
	conn := dialSocket(t, srv, token)

	require.NoError(t, conn.WriteJSON(channel.Frame{
		Type:  channel.EventSendMessage,
		AckID: 1,
		Payload: mustRaw(t, channel.SendMessagePayload{
			ToUserID:       "u2",
			Content:        "hello",
			ConversationID: "conv_local-123",
			TempID:         "temp_abc",
		}),
	}))

	ack := readAck(t, conn, 1)
	require.Empty(t, ack.Error)
	assert.NotContains(t, string(ack.Payload), "temp_abc", "server never echoes the client temp id")
	assert.Contains(t, string(ack.Payload), `"m-server"`)
}

func TestSendMessagePushesToRecipient(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)

	now := time.Now().UTC().Truncate(time.Second)
	conv := models.Conversation{ID: "c1", Participants: []string{"u1", "u2"}, LastActivityAt: now}
	stored := models.Message{ID: "m1", ConversationID: "c1", SenderID: "u1", ReceiverID: "u2", Content: "ping", CreatedAt: now}

	conversations.On("CreateOrGet", mock.Anything, "u1", "u2").Return(conv, nil)
	conversations.On("Touch", mock.Anything, "c1", "ping", mock.Anything).Return(nil)
	messages.On("Create", mock.Anything, "c1", "u1", "u2", "ping").Return(stored, nil)

	srv, auth, _ := newSocketTestServer(t, conversations, messages)
	senderToken, err := auth.GenerateToken("u1", "sam")
	require.NoError(t, err)
	recipientToken, err := auth.GenerateToken("u2", "alex")
	require.NoError(t, err)

	recipient := dialSocket(t, srv, recipientToken)
	sender := dialSocket(t, srv, senderToken)

	require.NoError(t, sender.WriteJSON(channel.Frame{
		Type:    channel.EventSendMessage,
		AckID:   1,
		Payload: mustRaw(t, channel.SendMessagePayload{ToUserID: "u2", Content: "ping"}),
	}))

	recipient.SetReadDeadline(time.Now().Add(2 * time.Second))
	sawNewMessage := false
	for !sawNewMessage {
		var frame channel.Frame
		require.NoError(t, recipient.ReadJSON(&frame))
		if frame.Type == channel.EventNewMessage {
			assert.Contains(t, string(frame.Payload), `"m1"`)
			sawNewMessage = true
		}
	}
}

func TestSendMessageRejectsSelfAndEmpty(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	srv, auth, _ := newSocketTestServer(t, conversations, messages)

	token, err := auth.GenerateToken("u1", "sam")
	require.NoError(t, err)
	conn := dialSocket(t, srv, token)

	require.NoError(t, conn.WriteJSON(channel.Frame{
		Type:    channel.EventSendMessage,
		AckID:   1,
		Payload: mustRaw(t, channel.SendMessagePayload{ToUserID: "u1", Content: "hi"}),
	}))
	assert.NotEmpty(t, readAck(t, conn, 1).Error)

	require.NoError(t, conn.WriteJSON(channel.Frame{
		Type:    channel.EventSendMessage,
		AckID:   2,
		Payload: mustRaw(t, channel.SendMessagePayload{ToUserID: "u2", Content: "   "}),
	}))
	assert.NotEmpty(t, readAck(t, conn, 2).Error)

	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesRequiresMembership(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	conversations.On("IsParticipant", mock.Anything, "c1", "u3").Return(false, nil)

	srv, auth, _ := newSocketTestServer(t, conversations, messages)
	token, err := auth.GenerateToken("u3", "eve")
	require.NoError(t, err)
	conn := dialSocket(t, srv, token)

	require.NoError(t, conn.WriteJSON(channel.Frame{
		Type:    channel.EventListMessages,
		AckID:   1,
		Payload: mustRaw(t, channel.ListMessagesPayload{ConversationID: "c1", Limit: 50}),
	}))

	ack := readAck(t, conn, 1)
	assert.NotEmpty(t, ack.Error)
	messages.AssertNotCalled(t, "ListForConversation", mock.Anything, mock.Anything, mock.Anything)
}

func TestListMessagesReturnsHistory(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	conversations.On("IsParticipant", mock.Anything, "c1", "u1").Return(true, nil)
	messages.On("ListForConversation", mock.Anything, "c1", 50).Return([]models.Message{
		{ID: "m1", ConversationID: "c1", Content: "first"},
		{ID: "m2", ConversationID: "c1", Content: "second"},
	}, nil)

	srv, auth, _ := newSocketTestServer(t, conversations, messages)
	token, err := auth.GenerateToken("u1", "sam")
	require.NoError(t, err)
	conn := dialSocket(t, srv, token)

	require.NoError(t, conn.WriteJSON(channel.Frame{
		Type:    channel.EventListMessages,
		AckID:   1,
		Payload: mustRaw(t, channel.ListMessagesPayload{ConversationID: "c1", Limit: 50}),
	}))

	ack := readAck(t, conn, 1)
	require.Empty(t, ack.Error)
	var result channel.ListMessagesResult
	require.NoError(t, json.Unmarshal(ack.Payload, &result))
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "m1", result.Messages[0].ID)
}

func TestMarkReadDelegatesToRepo(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	marked := make(chan struct{})
	messages.On("MarkRead", mock.Anything, "c1", "u1").
		Run(func(mock.Arguments) { close(marked) }).
		Return(nil)

	srv, auth, _ := newSocketTestServer(t, conversations, messages)
	token, err := auth.GenerateToken("u1", "sam")
	require.NoError(t, err)
	conn := dialSocket(t, srv, token)

	require.NoError(t, conn.WriteJSON(channel.Frame{
		Type:    channel.EventMarkRead,
		Payload: mustRaw(t, channel.MarkReadPayload{ConversationID: "c1"}),
	}))

	select {
	case <-marked:
	case <-time.After(2 * time.Second):
		t.Fatal("mark read never reached the repository")
	}
}
