package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teshub/teshub-api/internal/dto"
	"github.com/teshub/teshub-api/internal/service"
	appErrors "github.com/teshub/teshub-api/pkg/errors"
	"github.com/teshub/teshub-api/pkg/response"
)

const maxUploadBytes = 25 << 20

// fileOpener reads stored publication files back for download.
type fileOpener interface {
	Open(filename string) (*os.File, error)
}

// PublicationHandler exposes the publication lifecycle endpoints.
type PublicationHandler struct {
	service *service.PublicationService
	storage fileOpener
}

// NewPublicationHandler creates a new handler.
func NewPublicationHandler(svc *service.PublicationService, storage fileOpener) *PublicationHandler {
	return &PublicationHandler{service: svc, storage: storage}
}

// Create godoc
// @Summary Publish a new work
// @Description Multipart submission with metadata fields, an optional cover image and document attachments. New works enter the review queue.
// @Tags Publications
// @Accept multipart/form-data
// @Produce json
// @Param titulo formData string true "Title"
// @Param descripcion formData string true "Description"
// @Param integrantes formData []string false "Co-author matriculas"
// @Param tags formData []string false "Tags"
// @Param portada formData file false "Cover image"
// @Param archivos formData file false "Attachments"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones [post]
func (h *PublicationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreatePublicationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos de publicación inválidos"))
		return
	}

	cover, err := optionalUpload(c, "portada")
	if err != nil {
		response.Error(c, err)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "formulario inválido"))
		return
	}

	var attachments []service.UploadedFile
	for _, fileHeader := range form.File["archivos"] {
		if fileHeader.Size > maxUploadBytes {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("el archivo %s supera el tamaño máximo", fileHeader.Filename)))
			return
		}
		data, err := readMultipartFile(fileHeader)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "no se pudo leer un archivo"))
			return
		}
		attachments = append(attachments, service.UploadedFile{Name: fileHeader.Filename, Data: data})
	}

	pub, err := h.service.Create(c.Request.Context(), claims.Matricula, claims.Role, req, cover, attachments)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, pub, "publicación creada")
}

// Detail godoc
// @Summary Get a publication with members, files, tags and ratings
// @Tags Publications
// @Produce json
// @Param id path int true "Publication id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id} [get]
func (h *PublicationHandler) Detail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), publicationID, claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, detail)
}

// Update godoc
// @Summary Edit a publication
// @Description Members or administrators. Editing a work in "correcciones" or "rechazado" sends it back to the review queue.
// @Tags Publications
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Publication id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id} [put]
func (h *PublicationHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	var req dto.UpdatePublicationRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "datos inválidos"))
		return
	}

	cover, err := optionalUpload(c, "portada")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Update(c.Request.Context(), claims.Matricula, claims.Role, publicationID, req, cover); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "publicación actualizada")
}

// Delete godoc
// @Summary Delete a publication
// @Tags Publications
// @Produce json
// @Param id path int true "Publication id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id} [delete]
func (h *PublicationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.Matricula, claims.Role, publicationID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "publicación eliminada")
}

// Mine godoc
// @Summary List the caller's own publications in every status
// @Tags Publications
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/mias [get]
func (h *PublicationHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pubs, err := h.service.Mine(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pubs)
}

// ByUser godoc
// @Summary List a user's publications
// @Description The owner sees every status, other viewers only approved work
// @Tags Publications
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /usuarios/{matricula}/publicaciones [get]
func (h *PublicationHandler) ByUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	pubs, err := h.service.ByUser(c.Request.Context(), c.Param("matricula"), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pubs)
}

// Catalog godoc
// @Summary Browse approved publications, newest first
// @Tags Publications
// @Produce json
// @Param limite query int false "Page size" default(20)
// @Param desplazamiento query int false "Offset" default(0)
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones [get]
func (h *PublicationHandler) Catalog(c *gin.Context) {
	limit, offset := pagination(c)

	pubs, err := h.service.Catalog(c.Request.Context(), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, pubs)
}

// CatalogCSV godoc
// @Summary Export the approved catalog as CSV
// @Tags Publications
// @Produce text/csv
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /publicaciones/exportar [get]
func (h *PublicationHandler) CatalogCSV(c *gin.Context) {
	data, err := h.service.CatalogCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="publicaciones.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Download godoc
// @Summary Download a publication attachment
// @Description Streams the stored file and increments the download counter
// @Tags Publications
// @Produce application/octet-stream
// @Param id path int true "Publication id"
// @Param archivo path int true "File id"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id}/archivos/{archivo} [get]
func (h *PublicationHandler) Download(c *gin.Context) {
	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}
	fileID, err := strconv.Atoi(c.Param("archivo"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	meta, err := h.service.Download(c.Request.Context(), publicationID, fileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.storage.Open(meta.FilePath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "archivo no disponible"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "archivo no disponible"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileName))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// Rate godoc
// @Summary Rate a publication 1 to 5
// @Description One rating per user per publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path int true "Publication id"
// @Param payload body dto.RateRequest true "Score"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id}/calificar [post]
func (h *PublicationHandler) Rate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	var req dto.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "la calificación debe estar entre 1 y 5"))
		return
	}

	if err := h.service.Rate(c.Request.Context(), claims.Matricula, publicationID, req.Score); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "calificación registrada")
}

// Comment godoc
// @Summary Comment on a publication
// @Tags Publications
// @Accept json
// @Produce json
// @Param id path int true "Publication id"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id}/comentarios [post]
func (h *PublicationHandler) Comment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "el comentario es obligatorio"))
		return
	}

	comment, err := h.service.Comment(c.Request.Context(), claims.Matricula, publicationID, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment, "comentario agregado")
}

// Comments godoc
// @Summary List the comments of a publication, newest first
// @Tags Publications
// @Produce json
// @Param id path int true "Publication id"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id}/comentarios [get]
func (h *PublicationHandler) Comments(c *gin.Context) {
	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	comments, err := h.service.Comments(c.Request.Context(), publicationID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, comments)
}

// DeleteComment godoc
// @Summary Delete a comment
// @Description The comment author or an administrator
// @Tags Publications
// @Produce json
// @Param id path int true "Publication id"
// @Param comentario path int true "Comment id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id}/comentarios/{comentario} [delete]
func (h *PublicationHandler) DeleteComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	commentID, err := strconv.Atoi(c.Param("comentario"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	if err := h.service.DeleteComment(c.Request.Context(), claims.Matricula, claims.Role, commentID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "comentario eliminado")
}

// RemoveFile godoc
// @Summary Remove an attachment from a publication
// @Tags Publications
// @Produce json
// @Param id path int true "Publication id"
// @Param archivo path int true "File id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /publicaciones/{id}/archivos/{archivo} [delete]
func (h *PublicationHandler) RemoveFile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	publicationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}
	fileID, err := strconv.Atoi(c.Param("archivo"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "identificador inválido"))
		return
	}

	if err := h.service.RemoveFile(c.Request.Context(), claims.Matricula, claims.Role, publicationID, fileID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "archivo eliminado")
}

// optionalUpload reads a single optional multipart file into memory.
func optionalUpload(c *gin.Context, field string) (*service.UploadedFile, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "formulario inválido")
	}
	if fileHeader.Size > maxUploadBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("el archivo %s supera el tamaño máximo", fileHeader.Filename))
	}
	data, err := readMultipartFile(fileHeader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "no se pudo leer el archivo")
	}
	return &service.UploadedFile{Name: fileHeader.Filename, Data: data}, nil
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limite", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("desplazamiento", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
