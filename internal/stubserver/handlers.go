package stubserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agora/internal/models"
	"agora/internal/stubserver/repositories"
	"agora/internal/telemetry"
)

// Handler carries every REST endpoint of the development backend.
type Handler struct {
	users         repositories.UserRepository
	posts         repositories.PostRepository
	comments      repositories.CommentRepository
	communities   repositories.CommunityRepository
	conversations repositories.ConversationRepository
	auth          *Authenticator
	audit         *telemetry.AuditEmitter
}

// NewHandler constructs a Handler over the given repositories.
func NewHandler(users repositories.UserRepository, posts repositories.PostRepository, comments repositories.CommentRepository, communities repositories.CommunityRepository, conversations repositories.ConversationRepository, auth *Authenticator, audit *telemetry.AuditEmitter) *Handler {
	return &Handler{
		users:         users,
		posts:         posts,
		comments:      comments,
		communities:   communities,
		conversations: conversations,
		auth:          auth,
		audit:         audit,
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login issues a token for any credentials, creating the user on first sight.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.EnsureUser(c.Request.Context(), req.Username)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to resolve user")
		return
	}
	token, err := h.auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.audit.Emit(c.Request.Context(), "user_login", user.Username, "", &user.ID)
	ok(c, gin.H{"user": user, "token": token})
}

// GetUser returns a profile with the viewer's follow edge resolved.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	ok(c, user)
}

// ToggleFollow flips the viewer's follow edge on the target user.
func (h *Handler) ToggleFollow(c *gin.Context) {
	viewerID := currentUserID(c)
	targetID := c.Param("id")
	if targetID == viewerID {
		fail(c, http.StatusBadRequest, "cannot follow yourself")
		return
	}
	following, err := h.users.ToggleFollow(c.Request.Context(), viewerID, targetID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to update follow")
		return
	}
	ok(c, gin.H{"isFollowing": following})
}

// ListPosts returns every post, newest first.
func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list posts")
		return
	}
	ok(c, posts)
}

// GetPost returns a single post.
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		fail(c, http.StatusNotFound, "post not found")
		return
	}
	ok(c, post)
}

type createPostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Community string `json:"community"`
	ImageURL  string `json:"imageUrl"`
	Link      string `json:"link"`
}

// CreatePost stores a new post authored by the viewer.
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, "title is required")
		return
	}

	authorID := currentUserID(c)
	post, err := h.posts.Create(c.Request.Context(), models.Post{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   req.Content,
		AuthorID:  authorID,
		Community: req.Community,
		ImageURL:  req.ImageURL,
		Link:      req.Link,
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to create post")
		return
	}
	h.audit.Emit(c.Request.Context(), "post_created", post.ID, post.Title, &authorID)
	ok(c, post)
}

type voteRequest struct {
	Direction string `json:"direction"`
}

// Vote applies an up, down, or none vote and returns the new total.
func (h *Handler) Vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Direction {
	case "up", "down", "none":
	default:
		fail(c, http.StatusBadRequest, "direction must be up, down, or none")
		return
	}

	total, err := h.posts.ApplyVote(c.Request.Context(), c.Param("id"), currentUserID(c), req.Direction)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to apply vote")
		return
	}
	ok(c, gin.H{"votesCount": total})
}

// ToggleBookmark flips the viewer's bookmark on a post.
func (h *Handler) ToggleBookmark(c *gin.Context) {
	bookmarked, err := h.posts.ToggleBookmark(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to update bookmark")
		return
	}
	ok(c, gin.H{"isBookmarked": bookmarked})
}

// ListBookmarks returns the viewer's bookmarked posts.
func (h *Handler) ListBookmarks(c *gin.Context) {
	posts, err := h.posts.ListBookmarked(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list bookmarks")
		return
	}
	ok(c, posts)
}

// ListComments returns the comments of a post in creation order.
func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.comments.ListForPost(c.Request.Context(), c.Param("postId"))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list comments")
		return
	}
	ok(c, comments)
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// CreateComment stores a comment and bumps the post's counter.
func (h *Handler) CreateComment(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, "content is required")
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), c.Param("postId"), currentUserID(c), req.Content)
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to create comment")
		return
	}
	ok(c, comment)
}

// ListCommunities returns every community with the viewer's membership flag.
func (h *Handler) ListCommunities(c *gin.Context) {
	communities, err := h.communities.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list communities")
		return
	}
	ok(c, communities)
}

// ListJoinedCommunities returns the communities the viewer is a member of.
func (h *Handler) ListJoinedCommunities(c *gin.Context) {
	communities, err := h.communities.ListJoined(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list communities")
		return
	}
	ok(c, communities)
}

// JoinCommunity adds the viewer as a member.
func (h *Handler) JoinCommunity(c *gin.Context) {
	if err := h.communities.Join(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		fail(c, http.StatusInternalServerError, "failed to join community")
		return
	}
	ok(c, gin.H{"isJoined": true})
}

// LeaveCommunity removes the viewer's membership.
func (h *Handler) LeaveCommunity(c *gin.Context) {
	if err := h.communities.Leave(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		fail(c, http.StatusInternalServerError, "failed to leave community")
		return
	}
	ok(c, gin.H{"isJoined": false})
}

// ListConversations returns the viewer's conversations, most recent first.
func (h *Handler) ListConversations(c *gin.Context) {
	conversations, err := h.conversations.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	ok(c, conversations)
}
