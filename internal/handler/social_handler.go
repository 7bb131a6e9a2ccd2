package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

// SocialHandler exposes the follow graph endpoints.
type SocialHandler struct {
	service *service.SocialService
}

// NewSocialHandler creates a new handler.
func NewSocialHandler(svc *service.SocialService) *SocialHandler {
	return &SocialHandler{service: svc}
}

// ToggleFollow godoc
// @Summary Follow or unfollow a user
// @Description Toggles the relation and reports the resulting state
// @Tags Social
// @Produce json
// @Param matricula path string true "Target matricula"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/{matricula}/seguir [post]
func (h *SocialHandler) ToggleFollow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	following, err := h.service.ToggleFollow(c.Request.Context(), claims.Matricula, c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if following {
		response.JSON(c, http.StatusOK, gin.H{"siguiendo": true}, "ahora sigues a este usuario")
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"siguiendo": false}, "dejaste de seguir a este usuario")
}

// Followers godoc
// @Summary List a user's followers
// @Tags Social
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/{matricula}/seguidores [get]
func (h *SocialHandler) Followers(c *gin.Context) {
	followers, err := h.service.Followers(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, followers)
}

// Following godoc
// @Summary List the users someone follows
// @Tags Social
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/{matricula}/seguidos [get]
func (h *SocialHandler) Following(c *gin.Context) {
	following, err := h.service.Following(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, following)
}
