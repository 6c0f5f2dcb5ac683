package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/service"
)

// ChannelHandler serves channel CRUD, history, standups and sends.
// Membership changes live in membership.go.
type ChannelHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewChannelHandler(svc *service.Service, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{svc: svc, logger: logger}
}

type createChannelRequest struct {
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type sendLaterRequest struct {
	Message  string `json:"message"`
	TimeSent int64  `json:"time_sent"`
}

type standupRequest struct {
	Length int `json:"length"`
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.CreateChannel(c.Request.Context(), middleware.GetUserID(c), req.Name, req.IsPublic)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": id})
}

// List handles GET /v1/channels
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.svc.ListChannels(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// ListAll handles GET /v1/channels/all
func (h *ChannelHandler) ListAll(c *gin.Context) {
	channels, err := h.svc.ListAllChannels(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// Details handles GET /v1/channels/:id
func (h *ChannelHandler) Details(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	details, err := h.svc.ChannelDetails(c.Request.Context(), middleware.GetUserID(c), channelID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Messages handles GET /v1/channels/:id/messages?start=N
func (h *ChannelHandler) Messages(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	start, err := queryInt(c, "start", 0)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	page, err := h.svc.ChannelMessages(c.Request.Context(), middleware.GetUserID(c), channelID, start)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Send handles POST /v1/channels/:id/messages
func (h *ChannelHandler) Send(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req messageRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.SendMessage(c.Request.Context(), middleware.GetUserID(c), channelID, req.Message)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": id})
}

// SendLater handles POST /v1/channels/:id/messages/later
func (h *ChannelHandler) SendLater(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req sendLaterRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.SendLater(c.Request.Context(), middleware.GetUserID(c), channelID, req.Message, req.TimeSent)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": id})
}

// StartStandup handles POST /v1/channels/:id/standup
func (h *ChannelHandler) StartStandup(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req standupRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	finish, err := h.svc.StartStandup(c.Request.Context(), middleware.GetUserID(c), channelID, req.Length)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"time_finish": finish})
}

// StandupActive handles GET /v1/channels/:id/standup
func (h *ChannelHandler) StandupActive(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	status, err := h.svc.StandupActive(c.Request.Context(), middleware.GetUserID(c), channelID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// StandupSend handles POST /v1/channels/:id/standup/messages
func (h *ChannelHandler) StandupSend(c *gin.Context) {
	channelID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req messageRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.StandupSend(c.Request.Context(), middleware.GetUserID(c), channelID, req.Message); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}
