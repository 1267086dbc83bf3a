package ginserver

import (
	"context"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayly/internal/app/dto"
	authsvc "stayly/internal/app/services/auth"
)

// AuthService is the slice of the OTP login service the HTTP layer needs.
type AuthService interface {
	RequestCode(ctx context.Context, params authsvc.RequestCodeParams) (*authsvc.RequestCodeResult, error)
	VerifyCode(ctx context.Context, params authsvc.VerifyCodeParams) (*authsvc.AuthResult, error)
}

type AuthHandler struct {
	Service AuthService
	Logger  *slog.Logger
}

type requestCodeRequest struct {
	Email     string `json:"email" binding:"required"`
	WantsHost bool   `json:"wants_host"`
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func (h AuthHandler) RequestCode(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := h.Service.RequestCode(c.Request.Context(), authsvc.RequestCodeParams{
		Email:     req.Email,
		WantsHost: req.WantsHost,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"email": result.Email, "expires_at": result.ExpiresAt})
}

func (h AuthHandler) Verify(c *gin.Context) {
	if h.Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
		return
	}
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := h.Service.VerifyCode(c.Request.Context(), authsvc.VerifyCodeParams{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.Session{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.MapUser(result.User),
	})
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.User{
		ID:    p.UserID,
		Email: p.Email,
		Roles: append([]string(nil), p.Roles...),
	})
}

var _ AuthHTTP = AuthHandler{}
