package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/schoolfees/backend/internal/interfaces/http/dto"
	"github.com/schoolfees/backend/internal/interfaces/http/middleware"
)

// AuthHandler exposes the identity behind the current access token
type AuthHandler struct {
	BaseHandler
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// CurrentUserResponse describes the staff member making the request
type CurrentUserResponse struct {
	UserID        string     `json:"user_id"`
	Username      string     `json:"username"`
	Roles         []string   `json:"roles"`
	CollectorName string     `json:"collector_name"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Me godoc
// @Summary      Current user
// @Description  Returns the staff identity recorded as collected_by on receipts
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=CurrentUserResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return
	}

	resp := CurrentUserResponse{
		UserID:        claims.UserID,
		Username:      claims.Username,
		Roles:         claims.Roles,
		CollectorName: claims.CollectorName(),
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	h.Success(c, resp)
}
