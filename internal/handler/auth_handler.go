package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register godoc
// @Summary Register an account
// @Description Create a student or advisor account. Advisors must supply an invitation code and wait for admin approval.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/registro [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos de registro inválidos"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user, "cuenta creada correctamente")
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password, returning a signed token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos de acceso inválidos"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, res)
}

// Recover godoc
// @Summary Start password recovery
// @Description Mail a 6-digit verification code to the registered address
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RecoverRequest true "Recovery payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/recuperar [post]
func (h *AuthHandler) Recover(c *gin.Context) {
	var req dto.RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "correo inválido"))
		return
	}

	if err := h.service.Recover(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "se envió un código de verificación a tu correo")
}

// ResetPassword godoc
// @Summary Reset password with a mailed code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.ResetPasswordRequest true "Reset payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/restablecer [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "contraseña actualizada")
}

// ChangePassword godoc
// @Summary Change the current user's password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.ChangePasswordRequest true "Change password payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/contrasena [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), claims.Matricula, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "contraseña actualizada")
}

// RequestEmailCode godoc
// @Summary Request an email-change verification code
// @Description Mail a 6-digit code to the new address before switching to it
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RequestEmailCodeRequest true "Email payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/correo/codigo [post]
func (h *AuthHandler) RequestEmailCode(c *gin.Context) {
	var req dto.RequestEmailCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "correo inválido"))
		return
	}

	if err := h.service.RequestEmailCode(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "se envió un código de verificación al nuevo correo")
}
