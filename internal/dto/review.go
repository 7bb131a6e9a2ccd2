package dto

import "github.com/teshub/teshub-api/internal/models"

// ReviewRequest records an advisor's verdict on a queued publication.
type ReviewRequest struct {
	Status   models.ModerationStatus `json:"estatus" binding:"required"`
	Comments string                  `json:"comentarios" binding:"required"`
}

// PendingQueueItem is a queued publication with the relative-time label the
// client renders. The queue lists items oldest first.
type PendingQueueItem struct {
	models.PendingReviewItem
	TimeAgo string `json:"hace_cuanto"`
}
