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

// EventHandler exposes the academic event endpoints.
type EventHandler struct {
	service *service.EventService
}

// NewEventHandler creates a new handler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{service: svc}
}

// Create godoc
// @Summary Create an academic event
// @Description Multipart submission with an optional cover image. The creator becomes an organizer.
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param titulo formData string true "Title"
// @Param descripcion formData string true "Description"
// @Param categoria formData string true "Category"
// @Param lugar formData string true "Venue"
// @Param cupo formData int true "Capacity"
// @Param fecha formData string true "Start time, RFC3339"
// @Param portada formData file false "Cover image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos del evento inválidos"))
		return
	}

	cover, err := optionalUpload(c, "portada")
	if err != nil {
		response.Error(c, err)
		return
	}

	event, err := h.service.Create(c.Request.Context(), claims.Matricula, req, cover)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event, "evento creado")
}

// Detail godoc
// @Summary Get an event with organizers and registration state
// @Tags Events
// @Produce json
// @Param id path int true "Event id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos/{id} [get]
func (h *EventHandler) Detail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), eventID, claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, detail)
}

// List godoc
// @Summary List upcoming events
// @Tags Events
// @Produce json
// @Param limite query int false "Page size" default(20)
// @Param desplazamiento query int false "Offset" default(0)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos [get]
func (h *EventHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, offset := pagination(c)

	events, err := h.service.List(c.Request.Context(), claims.Matricula, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, events)
}

// ByUser godoc
// @Summary List the events a user organizes or attends
// @Tags Events
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/{matricula}/eventos [get]
func (h *EventHandler) ByUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	events, err := h.service.ListByUser(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, events)
}

// Update godoc
// @Summary Edit an event
// @Description Organizers only. Replacing the organizer list keeps the caller on it.
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Event id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos del evento inválidos"))
		return
	}

	cover, err := optionalUpload(c, "portada")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Update(c.Request.Context(), claims.Matricula, eventID, req, cover); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "evento actualizado")
}

// Delete godoc
// @Summary Delete an event
// @Description Organizers only
// @Tags Events
// @Produce json
// @Param id path int true "Event id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.Matricula, eventID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "evento eliminado")
}

// Register godoc
// @Summary Register for an event
// @Description Fails when the event is already at capacity
// @Tags Events
// @Produce json
// @Param id path int true "Event id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos/{id}/inscribir [post]
func (h *EventHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	seats, err := h.service.Register(c.Request.Context(), eventID, claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, seats, "inscripción registrada")
}

// Unregister godoc
// @Summary Drop the registration for an event
// @Tags Events
// @Produce json
// @Param id path int true "Event id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos/{id}/inscribir [delete]
func (h *EventHandler) Unregister(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	eventID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	seats, err := h.service.Unregister(c.Request.Context(), eventID, claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, seats, "inscripción cancelada")
}

// Search godoc
// @Summary Advanced event search
// @Description Combine keyword, date range, category and geographic radius. At least one criterion is required; latitude, longitude and radius must come together.
// @Tags Events
// @Produce json
// @Param palabra query string false "Keyword"
// @Param desde query string false "Start date, YYYY-MM-DD"
// @Param hasta query string false "End date, YYYY-MM-DD"
// @Param categoria query string false "Category"
// @Param latitud query number false "Latitude"
// @Param longitud query number false "Longitude"
// @Param radio query number false "Radius in km"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /eventos/buscar [get]
func (h *EventHandler) Search(c *gin.Context) {
	var req dto.EventSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "parámetros de búsqueda inválidos"))
		return
	}

	hits, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, hits)
}
