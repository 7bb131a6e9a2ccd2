package handler

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

const maxAvatarBytes = 5 << 20

// UserHandler exposes profile and account endpoints.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// Me godoc
// @Summary Get the authenticated user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), claims.Matricula, claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}

// Profile godoc
// @Summary Get a user's public profile
// @Description Returns the profile with network counters, interests and whether the caller follows them
// @Tags Users
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/{matricula} [get]
func (h *UserHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), c.Param("matricula"), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, profile)
}

// UpdateProfile godoc
// @Summary Update the authenticated user's profile
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/me [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos de perfil inválidos"))
		return
	}

	if err := h.service.UpdateProfile(c.Request.Context(), claims.Matricula, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "perfil actualizado")
}

// UpdateAvatar godoc
// @Summary Replace the authenticated user's avatar
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param imagen formData file true "Avatar image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/me/avatar [put]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("imagen")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "la imagen es obligatoria"))
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "la imagen supera el tamaño máximo"))
		return
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "no se pudo leer la imagen"))
		return
	}

	path, err := h.service.UpdateAvatar(c.Request.Context(), claims.Matricula, fileHeader.Filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"foto_perfil": path}, "foto de perfil actualizada")
}

// UpdateEmail godoc
// @Summary Change the account email
// @Description Switch to a new address after verifying the mailed code
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.UpdateEmailRequest true "Email change payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/me/correo [put]
func (h *UserHandler) UpdateEmail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	if err := h.service.UpdateEmail(c.Request.Context(), claims.Matricula, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "correo actualizado")
}

// Deactivate godoc
// @Summary Deactivate the authenticated account
// @Description Marks the account inactive and closes its advisories
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/me [delete]
func (h *UserHandler) Deactivate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Deactivate(c.Request.Context(), claims.Matricula); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "cuenta desactivada")
}

// AdminDeactivate godoc
// @Summary Deactivate any account
// @Tags Admin
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/usuarios/{matricula} [delete]
func (h *UserHandler) AdminDeactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("matricula")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "cuenta desactivada")
}

// PendingAdvisors godoc
// @Summary List advisor accounts awaiting approval
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/asesores/pendientes [get]
func (h *UserHandler) PendingAdvisors(c *gin.Context) {
	advisors, err := h.service.PendingAdvisors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, advisors)
}

// ApproveAdvisor godoc
// @Summary Approve a pending advisor account
// @Tags Admin
// @Produce json
// @Param matricula path string true "Advisor matricula"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/asesores/{matricula}/aprobar [post]
func (h *UserHandler) ApproveAdvisor(c *gin.Context) {
	if err := h.service.ApproveAdvisor(c.Request.Context(), c.Param("matricula")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "asesor aprobado")
}

// Interests godoc
// @Summary List the interest catalog
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /intereses [get]
func (h *UserHandler) Interests(c *gin.Context) {
	interests, err := h.service.Interests(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, interests)
}

// ReplaceInterests godoc
// @Summary Replace the authenticated user's interests
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceInterestsRequest true "Interest ids"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/me/intereses [put]
func (h *UserHandler) ReplaceInterests(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReplaceInterestsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	if err := h.service.ReplaceInterests(c.Request.Context(), claims.Matricula, req.InterestIDs); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "intereses actualizados")
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close() //nolint:errcheck
	return io.ReadAll(file)
}
