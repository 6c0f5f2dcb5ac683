package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/service"
)

// MembershipHandler serves joining, leaving, invites and channel owners.
type MembershipHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewMembershipHandler(svc *service.Service, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{svc: svc, logger: logger}
}

type userIDRequest struct {
	UID int `json:"u_id"`
}

// Invite handles POST /v1/channels/:id/invite
func (h *MembershipHandler) Invite(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req userIDRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.Invite(c.Request.Context(), middleware.GetUserID(c), channelID, req.UID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Join handles POST /v1/channels/:id/join
func (h *MembershipHandler) Join(c *gin.Context) {
	h.channelAction(c, h.svc.Join)
}

// Leave handles POST /v1/channels/:id/leave
func (h *MembershipHandler) Leave(c *gin.Context) {
	h.channelAction(c, h.svc.Leave)
}

// AddOwner handles POST /v1/channels/:id/owners
func (h *MembershipHandler) AddOwner(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req userIDRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.AddOwner(c.Request.Context(), middleware.GetUserID(c), channelID, req.UID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// RemoveOwner handles DELETE /v1/channels/:id/owners/:uid
func (h *MembershipHandler) RemoveOwner(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	userID, err := pathID(c, "uid")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.RemoveOwner(c.Request.Context(), middleware.GetUserID(c), channelID, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// channelAction runs an operation that takes only the caller and the
// channel from the path.
func (h *MembershipHandler) channelAction(c *gin.Context, op func(ctx context.Context, actorID, channelID int) error) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := op(c.Request.Context(), middleware.GetUserID(c), channelID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}
