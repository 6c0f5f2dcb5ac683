package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lalith-99/streams/internal/apperr"
	"github.com/lalith-99/streams/internal/service"
)

// Context keys the auth middleware fills in for handlers.
const (
	ContextKeyUserID    = "user_id"
	ContextKeySessionID = "session_id"
)

// TokenResolver turns a bearer token into the caller's identity.
type TokenResolver interface {
	Authenticate(token string) (service.Identity, error)
}

// AuthMiddleware rejects requests without a valid "Authorization: Bearer
// <token>" header. Every failure is a 403, the same status the service
// uses for invalid tokens.
func AuthMiddleware(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperr.Access("missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, apperr.Access("invalid authorization format, expected: Bearer <token>"))
			return
		}

		id, err := resolver.Authenticate(parts[1])
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(ContextKeyUserID, id.UserID)
		c.Set(ContextKeySessionID, id.SessionID)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err)})
}

// GetUserID returns the authenticated user id, or 0 outside AuthMiddleware.
func GetUserID(c *gin.Context) int {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	id, ok := val.(int)
	if !ok {
		return 0
	}
	return id
}

// GetIdentity returns the full identity, including the session the token
// belongs to.
func GetIdentity(c *gin.Context) service.Identity {
	return service.Identity{
		UserID:    GetUserID(c),
		SessionID: c.GetString(ContextKeySessionID),
	}
}
