package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/models"
	"github.com/lalith-99/streams/internal/service"
)

// MessageHandler serves operations addressed by message id.
type MessageHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewMessageHandler(svc *service.Service, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

type shareRequest struct {
	Message   string `json:"message"`
	ChannelID int    `json:"channel_id"`
	DMID      int    `json:"dm_id"`
}

type reactRequest struct {
	ReactID int `json:"react_id"`
}

// Edit handles PUT /v1/messages/:id
func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req messageRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.EditMessage(c.Request.Context(), middleware.GetUserID(c), messageID, req.Message); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Remove handles DELETE /v1/messages/:id
func (h *MessageHandler) Remove(c *gin.Context) {
	h.messageAction(c, h.svc.RemoveMessage)
}

// Share handles POST /v1/messages/:id/share
func (h *MessageHandler) Share(c *gin.Context) {
	messageID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	// Both targets default to -1 so a body naming only one is valid.
	req := shareRequest{ChannelID: -1, DMID: -1}
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.ShareMessage(c.Request.Context(), middleware.GetUserID(c), messageID, req.Message, req.ChannelID, req.DMID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shared_message_id": id})
}

// React handles POST /v1/messages/:id/react
func (h *MessageHandler) React(c *gin.Context) {
	h.reactAction(c, h.svc.React)
}

// Unreact handles POST /v1/messages/:id/unreact
func (h *MessageHandler) Unreact(c *gin.Context) {
	h.reactAction(c, h.svc.Unreact)
}

// Pin handles POST /v1/messages/:id/pin
func (h *MessageHandler) Pin(c *gin.Context) {
	h.messageAction(c, h.svc.Pin)
}

// Unpin handles POST /v1/messages/:id/unpin
func (h *MessageHandler) Unpin(c *gin.Context) {
	h.messageAction(c, h.svc.Unpin)
}

func (h *MessageHandler) messageAction(c *gin.Context, op func(ctx context.Context, actorID, messageID int) error) {
	messageID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := op(c.Request.Context(), middleware.GetUserID(c), messageID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

func (h *MessageHandler) reactAction(c *gin.Context, op func(ctx context.Context, actorID, messageID int, kind models.ReactKind) error) {
	messageID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req reactRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := op(c.Request.Context(), middleware.GetUserID(c), messageID, models.ReactKind(req.ReactID)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}
