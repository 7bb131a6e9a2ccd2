package dto

import "github.com/teshub/teshub-api/internal/models"

// CreatePublicationRequest holds the multipart fields submitted alongside
// the cover image and attachments.
type CreatePublicationRequest struct {
	Title       string   `form:"titulo" binding:"required"`
	Description string   `form:"descripcion" binding:"required"`
	Members     []string `form:"integrantes"`
	Tags        []string `form:"tags"`
}

// UpdatePublicationRequest edits a publication the caller owns. Editing a
// work in "correcciones" or "rechazado" re-enters it into the review queue.
type UpdatePublicationRequest struct {
	Title       *string  `form:"titulo"`
	Description *string  `form:"descripcion"`
	Tags        []string `form:"tags"`
}

// PublicationDetailResponse assembles the full publication page.
type PublicationDetailResponse struct {
	models.Publication
	TimeAgo  string                     `json:"hace_cuanto"`
	Members  []models.PublicationMember `json:"integrantes"`
	Files    []models.PublicationFile   `json:"archivos"`
	Tags     []models.Tag               `json:"tags"`
	Average  float64                    `json:"promedio"`
	MyRating *int                       `json:"mi_calificacion,omitempty"`
}

// RateRequest scores a publication 1..5.
type RateRequest struct {
	Score int `json:"calificacion" binding:"required,min=1,max=5"`
}

// CommentRequest adds a comment to a publication.
type CommentRequest struct {
	Body string `json:"comentario" binding:"required"`
}
