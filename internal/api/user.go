package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/service"
)

// UserHandler serves profiles, the caller's own settings, search,
// notifications, stats and the admin operations.
type UserHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewUserHandler(svc *service.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

type setNameRequest struct {
	NameFirst string `json:"name_first"`
	NameLast  string `json:"name_last"`
}

type setEmailRequest struct {
	Email string `json:"email"`
}

type setHandleRequest struct {
	HandleStr string `json:"handle_str"`
}

type permissionRequest struct {
	PermissionID int `json:"permission_id"`
}

// All handles GET /v1/users
func (h *UserHandler) All(c *gin.Context) {
	users, err := h.svc.AllUsers(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// Profile handles GET /v1/users/:id
func (h *UserHandler) Profile(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	user, err := h.svc.Profile(c.Request.Context(), middleware.GetUserID(c), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// SetName handles PUT /v1/users/me/name
func (h *UserHandler) SetName(c *gin.Context) {
	var req setNameRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.SetName(c.Request.Context(), middleware.GetUserID(c), req.NameFirst, req.NameLast); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// SetEmail handles PUT /v1/users/me/email
func (h *UserHandler) SetEmail(c *gin.Context) {
	var req setEmailRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.SetEmail(c.Request.Context(), middleware.GetUserID(c), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// SetHandle handles PUT /v1/users/me/handle
func (h *UserHandler) SetHandle(c *gin.Context) {
	var req setHandleRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.SetHandle(c.Request.Context(), middleware.GetUserID(c), req.HandleStr); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Stats handles GET /v1/users/me/stats
func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.svc.UserStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_stats": stats})
}

// WorkspaceStats handles GET /v1/stats
func (h *UserHandler) WorkspaceStats(c *gin.Context) {
	stats, err := h.svc.WorkspaceStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_stats": stats})
}

// Notifications handles GET /v1/notifications
func (h *UserHandler) Notifications(c *gin.Context) {
	notes, err := h.svc.Notifications(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notes})
}

// Search handles GET /v1/search?query_str=
func (h *UserHandler) Search(c *gin.Context) {
	hits, err := h.svc.Search(c.Request.Context(), middleware.GetUserID(c), c.Query("query_str"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": hits})
}

// ChangePermission handles POST /v1/admin/users/:id/permission
func (h *UserHandler) ChangePermission(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req permissionRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	role := models.GlobalRole(req.PermissionID)
	if err := h.svc.ChangePermission(c.Request.Context(), middleware.GetUserID(c), userID, role); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Remove handles DELETE /v1/admin/users/:id
func (h *UserHandler) Remove(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.RemoveUser(c.Request.Context(), middleware.GetUserID(c), userID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}
