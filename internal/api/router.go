package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/service"
	"github.com/lalith-99/streams/internal/ws"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// NewRouter wires every /v1 route. checks are run by GET /v1/health and
// keyed by name in its response.
func NewRouter(svc *service.Service, hub *ws.Hub, logger *zap.Logger, checks map[string]HealthCheck) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), middleware.Recovery(logger))

	authH := NewAuthHandler(svc, logger)
	channelH := NewChannelHandler(svc, logger)
	memberH := NewMembershipHandler(svc, logger)
	dmH := NewDMHandler(svc, logger)
	messageH := NewMessageHandler(svc, logger)
	userH := NewUserHandler(svc, logger)

	v1 := r.Group("/v1")

	// Public.
	v1.GET("/health", health(checks))
	v1.DELETE("/clear", func(c *gin.Context) {
		if err := svc.Clear(c.Request.Context()); err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, empty)
	})
	v1.GET("/ws", ws.Handler(hub, svc, logger))
	v1.POST("/auth/register", authH.Register)
	v1.POST("/auth/login", authH.Login)
	v1.POST("/auth/passwordreset/request", authH.RequestReset)
	v1.POST("/auth/passwordreset/reset", authH.Reset)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(svc))

	authed.POST("/auth/logout", authH.Logout)

	authed.POST("/channels", channelH.Create)
	authed.GET("/channels", channelH.List)
	authed.GET("/channels/all", channelH.ListAll)
	authed.GET("/channels/:id", channelH.Details)
	authed.POST("/channels/:id/invite", memberH.Invite)
	authed.POST("/channels/:id/join", memberH.Join)
	authed.POST("/channels/:id/leave", memberH.Leave)
	authed.POST("/channels/:id/owners", memberH.AddOwner)
	authed.DELETE("/channels/:id/owners/:uid", memberH.RemoveOwner)
	authed.GET("/channels/:id/messages", channelH.Messages)
	authed.POST("/channels/:id/messages", channelH.Send)
	authed.POST("/channels/:id/messages/later", channelH.SendLater)
	authed.POST("/channels/:id/standup", channelH.StartStandup)
	authed.GET("/channels/:id/standup", channelH.StandupActive)
	authed.POST("/channels/:id/standup/messages", channelH.StandupSend)

	authed.POST("/dms", dmH.Create)
	authed.GET("/dms", dmH.List)
	authed.GET("/dms/:id", dmH.Details)
	authed.POST("/dms/:id/leave", dmH.Leave)
	authed.DELETE("/dms/:id", dmH.Remove)
	authed.GET("/dms/:id/messages", dmH.Messages)
	authed.POST("/dms/:id/messages", dmH.Send)
	authed.POST("/dms/:id/messages/later", dmH.SendLater)

	authed.PUT("/messages/:id", messageH.Edit)
	authed.DELETE("/messages/:id", messageH.Remove)
	authed.POST("/messages/:id/share", messageH.Share)
	authed.POST("/messages/:id/react", messageH.React)
	authed.POST("/messages/:id/unreact", messageH.Unreact)
	authed.POST("/messages/:id/pin", messageH.Pin)
	authed.POST("/messages/:id/unpin", messageH.Unpin)

	authed.GET("/users", userH.All)
	authed.GET("/users/:id", userH.Profile)
	authed.PUT("/users/me/name", userH.SetName)
	authed.PUT("/users/me/email", userH.SetEmail)
	authed.PUT("/users/me/handle", userH.SetHandle)
	authed.GET("/users/me/stats", userH.Stats)
	authed.GET("/stats", userH.WorkspaceStats)
	authed.GET("/notifications", userH.Notifications)
	authed.GET("/search", userH.Search)

	authed.POST("/admin/users/:id/permission", userH.ChangePermission)
	authed.DELETE("/admin/users/:id", userH.Remove)

	return r
}

// health answers 200 with {"status":"ok"} when every check passes and
// 503 naming the failed ones otherwise.
func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failed := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
