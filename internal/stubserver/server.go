package stubserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"agora/internal/observability"
)

// NewRouter assembles the development backend: REST endpoints under the
// envelope convention, the socket endpoint, and a metrics surface.
func NewRouter(handler *Handler, socket *SocketHandler, auth *Authenticator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("agora-stubserver"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/login", handler.Login)

	authMiddleware := AuthMiddleware(auth)

	router.GET("/users/:id", authMiddleware, handler.GetUser)
	router.POST("/users/:id/follow", authMiddleware, handler.ToggleFollow)

	router.GET("/posts", authMiddleware, handler.ListPosts)
	router.POST("/posts", authMiddleware, handler.CreatePost)
	router.GET("/posts/:id", authMiddleware, handler.GetPost)
	router.POST("/posts/:id/vote", authMiddleware, handler.Vote)

	router.GET("/comments/post/:postId", authMiddleware, handler.ListComments)
	router.POST("/comments/post/:postId", authMiddleware, handler.CreateComment)

	router.GET("/communities", authMiddleware, handler.ListCommunities)
	router.GET("/communities/me", authMiddleware, handler.ListJoinedCommunities)
	router.POST("/communities/:id/join", authMiddleware, handler.JoinCommunity)
	router.POST("/communities/:id/leave", authMiddleware, handler.LeaveCommunity)

	router.POST("/bookmark/:id/bookmark", authMiddleware, handler.ToggleBookmark)
	router.GET("/bookmark/profile/bookmarks", authMiddleware, handler.ListBookmarks)

	router.GET("/api/conversations", authMiddleware, handler.ListConversations)

	router.GET("/socket", socket.Handle)

	return router
}
