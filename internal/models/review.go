package models

import "time"

// ReviewRecord is an immutable entry in a publication's review history.
// Each verdict appends a record; the publication row only keeps the latest
// status.
type ReviewRecord struct {
	ID               int              `db:"id" json:"id_revision"`
	PublicationID    int              `db:"publication_id" json:"id_publicacion"`
	AdvisorMatricula string           `db:"advisor_matricula" json:"matricula_asesor"`
	AssignedStatus   ModerationStatus `db:"assigned_status" json:"estatus"`
	Comments         string           `db:"comments" json:"comentarios"`
	ReviewedAt       time.Time        `db:"reviewed_at" json:"fecha"`
}

// ReviewHistoryItem is a review record joined with the advisor's name for
// the history listing and the PDF export.
type ReviewHistoryItem struct {
	ReviewRecord
	AdvisorFirstName string `db:"advisor_first_name" json:"nombre"`
	AdvisorLastName  string `db:"advisor_last_name" json:"apellido"`
}

// PendingReviewItem is a queued publication awaiting an advisor's verdict,
// ordered oldest first.
type PendingReviewItem struct {
	PublicationID int       `db:"publication_id" json:"id_publicacion"`
	Title         string    `db:"title" json:"titulo"`
	Description   string    `db:"description" json:"descripcion"`
	CoverPath     *string   `db:"cover_path" json:"imagen,omitempty"`
	PublishedAt   time.Time `db:"published_at" json:"fecha"`
	Matricula     string    `db:"matricula" json:"matricula"`
	FirstName     string    `db:"first_name" json:"nombre"`
	LastName      string    `db:"last_name" json:"apellido"`
}
