package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

// AdvisoryHandler exposes the advisor-student pairing endpoints.
type AdvisoryHandler struct {
	service *service.AdvisoryService
}

// NewAdvisoryHandler creates a new handler.
func NewAdvisoryHandler(svc *service.AdvisoryService) *AdvisoryHandler {
	return &AdvisoryHandler{service: svc}
}

// Request godoc
// @Summary Request supervision from an advisor
// @Description A student asks an active advisor for supervision. Only one pending or active advisory per student.
// @Tags Advisories
// @Accept json
// @Produce json
// @Param payload body dto.RequestAdvisoryRequest true "Advisor matricula"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /asesorias [post]
func (h *AdvisoryHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RequestAdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	advisory, err := h.service.Request(c.Request.Context(), claims.Matricula, req.AdvisorMatricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, advisory, "solicitud de asesoría enviada")
}

// Resolve godoc
// @Summary Accept or decline a pending request
// @Description Only the requested advisor can resolve. Declining removes the request.
// @Tags Advisories
// @Accept json
// @Produce json
// @Param id path int true "Advisory id"
// @Param payload body dto.ResolveAdvisoryRequest true "Resolution"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /asesorias/{id}/resolver [post]
func (h *AdvisoryHandler) Resolve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	advisoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	var req dto.ResolveAdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	if err := h.service.Resolve(c.Request.Context(), claims.Matricula, advisoryID, req.Accept); err != nil {
		response.Error(c, err)
		return
	}

	if req.Accept {
		response.Message(c, "asesoría aceptada")
		return
	}
	response.Message(c, "solicitud rechazada")
}

// Close godoc
// @Summary Close an active advisory
// @Description Either party of an active advisory can close it
// @Tags Advisories
// @Produce json
// @Param id path int true "Advisory id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /asesorias/{id} [delete]
func (h *AdvisoryHandler) Close(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	advisoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	if err := h.service.Close(c.Request.Context(), claims.Matricula, advisoryID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "asesoría finalizada")
}

// PendingRequests godoc
// @Summary List the advisor's pending supervision requests
// @Tags Advisories
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /asesorias/solicitudes [get]
func (h *AdvisoryHandler) PendingRequests(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requests, err := h.service.PendingRequests(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, requests)
}

// Advisees godoc
// @Summary List the advisor's active students
// @Tags Advisories
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /asesorias/estudiantes [get]
func (h *AdvisoryHandler) Advisees(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	students, err := h.service.Advisees(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, students)
}

// CurrentAdvisor godoc
// @Summary Get the student's current advisor
// @Description Returns the pending or active advisory with the advisor profile, null when none
// @Tags Advisories
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /asesorias/asesor [get]
func (h *AdvisoryHandler) CurrentAdvisor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	advisor, err := h.service.CurrentAdvisor(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, advisor)
}
