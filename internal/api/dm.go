package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/service"
)

type DMHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewDMHandler(svc *service.Service, logger *zap.Logger) *DMHandler {
	return &DMHandler{svc: svc, logger: logger}
}

type createDMRequest struct {
	UIDs []int `json:"u_ids"`
}

// Create handles POST /v1/dms
func (h *DMHandler) Create(c *gin.Context) {
	var req createDMRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.CreateDM(c.Request.Context(), middleware.GetUserID(c), req.UIDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dm_id": id})
}

// List handles GET /v1/dms
func (h *DMHandler) List(c *gin.Context) {
	dms, err := h.svc.ListDMs(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dms": dms})
}

// Details handles GET /v1/dms/:id
func (h *DMHandler) Details(c *gin.Context) {
	dmID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	details, err := h.svc.DMDetails(c.Request.Context(), middleware.GetUserID(c), dmID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// Leave handles POST /v1/dms/:id/leave
func (h *DMHandler) Leave(c *gin.Context) {
	dmID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.LeaveDM(c.Request.Context(), middleware.GetUserID(c), dmID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Remove handles DELETE /v1/dms/:id
func (h *DMHandler) Remove(c *gin.Context) {
	dmID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.RemoveDM(c.Request.Context(), middleware.GetUserID(c), dmID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Messages handles GET /v1/dms/:id/messages?start=N
func (h *DMHandler) Messages(c *gin.Context) {
	dmID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	start, err := queryInt(c, "start", 0)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	page, err := h.svc.DMMessages(c.Request.Context(), middleware.GetUserID(c), dmID, start)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Send handles POST /v1/dms/:id/messages
func (h *DMHandler) Send(c *gin.Context) {
	dmID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req messageRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.SendDM(c.Request.Context(), middleware.GetUserID(c), dmID, req.Message)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": id})
}

// SendLater handles POST /v1/dms/:id/messages/later
func (h *DMHandler) SendLater(c *gin.Context) {
	dmID, err := pathID(c, "id")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req sendLaterRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	id, err := h.svc.SendLaterDM(c.Request.Context(), middleware.GetUserID(c), dmID, req.Message, req.TimeSent)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": id})
}
