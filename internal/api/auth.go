package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/middleware"
	"github.com/lalith-99/streams/internal/service"
)

// AuthHandler serves registration, login and password reset. Everything
// except Logout is public.
type AuthHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewAuthHandler(svc *service.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

// Field rules (lengths, email shape) are enforced by the service so the
// error kinds stay uniform; binding only checks the JSON shape.
type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	NameFirst string `json:"name_first"`
	NameLast  string `json:"name_last"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	ResetCode   string `json:"reset_code"`
	NewPassword string `json:"new_password"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req.Email, req.Password, req.NameFirst, req.NameLast)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.GetIdentity(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// RequestReset handles POST /v1/auth/passwordreset/request
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req resetRequestRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}

// Reset handles POST /v1/auth/passwordreset/reset
func (h *AuthHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := bind(c, &req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.ResetCode, req.NewPassword); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, empty)
}
