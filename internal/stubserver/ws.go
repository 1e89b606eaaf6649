package stubserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"agora/internal/channel"
	"agora/internal/observability"
	"agora/internal/stubserver/repositories"
	"agora/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketHandler serves the client channel: ack-style requests plus pushes.
type SocketHandler struct {
	hub           *Hub
	auth          *Authenticator
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	audit         *telemetry.AuditEmitter
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, auth *Authenticator, conversations repositories.ConversationRepository, messages repositories.MessageRepository, audit *telemetry.AuditEmitter) *SocketHandler {
	return &SocketHandler{hub: hub, auth: auth, conversations: conversations, messages: messages, audit: audit}
}

// Handle upgrades the connection and serves frames until the peer goes away.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("agora/stubserver").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}
	parts := strings.SplitN(token, " ", 2)
	if len(parts) != 2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
		return
	}
	userID, err := h.auth.ValidateToken(parts[1])
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &wsClient{userID: userID, conn: conn}
	h.hub.Add(client)
	observability.IncWSActive()
	h.audit.Emit(context.Background(), "ws_connect", "", "", &userID)

	go h.readLoop(client)
}

func (h *SocketHandler) readLoop(client *wsClient) {
	defer func() {
		h.hub.Remove(client)
		client.conn.Close()
		observability.DecWSActive()
		h.audit.Emit(context.Background(), "ws_disconnect", "", "", &client.userID)
	}()

	for {
		var frame channel.Frame
		if err := client.conn.ReadJSON(&frame); err != nil {
			return
		}
		observability.IncWSEvent(frame.Type, "in")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		switch frame.Type {
		case channel.EventMarkRead:
			h.handleMarkRead(ctx, client, frame)
		case channel.EventListMessages:
			h.handleListMessages(ctx, client, frame)
		case channel.EventSendMessage:
			h.handleSendMessage(ctx, client, frame)
		default:
			h.ackError(client, frame, "unknown event")
		}
		cancel()
	}
}

func (h *SocketHandler) handleMarkRead(ctx context.Context, client *wsClient, frame channel.Frame) {
	var payload channel.MarkReadPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return
	}
	_ = h.messages.MarkRead(ctx, payload.ConversationID, client.userID)
}

func (h *SocketHandler) handleListMessages(ctx context.Context, client *wsClient, frame channel.Frame) {
	var payload channel.ListMessagesPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		h.ackError(client, frame, "bad payload")
		return
	}

	member, err := h.conversations.IsParticipant(ctx, payload.ConversationID, client.userID)
	if err != nil || !member {
		h.ackError(client, frame, "not a participant")
		return
	}

	msgs, err := h.messages.ListForConversation(ctx, payload.ConversationID, payload.Limit)
	if err != nil {
		h.ackError(client, frame, "failed to load messages")
		return
	}
	h.ack(client, frame, channel.ListMessagesResult{Messages: msgs})
}

func (h *SocketHandler) handleSendMessage(ctx context.Context, client *wsClient, frame channel.Frame) {
	var payload channel.SendMessagePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		h.ackError(client, frame, "bad payload")
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		h.ackError(client, frame, "message is empty")
		return
	}
	if payload.ToUserID == "" || payload.ToUserID == client.userID {
		h.ackError(client, frame, "cannot message yourself")
		return
	}

	// Pending client-side conversation ids resolve to the canonical
	// conversation for the pair; the client promotes on the pushed update.
	conv, err := h.conversations.CreateOrGet(ctx, client.userID, payload.ToUserID)
	if err != nil {
		h.ackError(client, frame, "could not resolve conversation")
		return
	}

	msg, err := h.messages.Create(ctx, conv.ID, client.userID, payload.ToUserID, payload.Content)
	if err != nil {
		h.ackError(client, frame, "failed to store message")
		return
	}
	if err := h.conversations.Touch(ctx, conv.ID, msg.Content, msg.CreatedAt); err == nil {
		conv.LastMessage = msg.Content
		conv.LastActivityAt = msg.CreatedAt
	}

	h.ack(client, frame, channel.SendMessageResult{Message: msg})
	h.audit.Emit(ctx, "message_sent", conv.ID, "", &client.userID)

	h.hub.SendToUser(payload.ToUserID, channel.EventNewMessage, channel.NewMessageEvent{Message: msg})
	update := channel.ConversationUpdatedEvent{Conversation: conv}
	h.hub.SendToUser(conv.Participants[0], channel.EventConversationUpdated, update)
	h.hub.SendToUser(conv.Participants[1], channel.EventConversationUpdated, update)
}

func (h *SocketHandler) ack(client *wsClient, request channel.Frame, payload any) {
	if request.AckID == 0 {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		h.ackError(client, request, "encode failure")
		return
	}
	observability.IncWSEvent(channel.FrameAck, "out")
	_ = client.send(channel.Frame{Type: channel.FrameAck, AckID: request.AckID, Payload: raw})
}

func (h *SocketHandler) ackError(client *wsClient, request channel.Frame, reason string) {
	if request.AckID == 0 {
		return
	}
	observability.IncWSEvent(channel.FrameAck, "out")
	_ = client.send(channel.Frame{Type: channel.FrameAck, AckID: request.AckID, Error: reason})
}
