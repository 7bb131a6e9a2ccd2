package models

import "time"

// ModerationStatus is the review state of a publication. A NULL status in
// the database means no verdict has been recorded yet; every state other
// than "aprobado" keeps the work in the advisor queue.
type ModerationStatus string

const (
	ModerationPending     ModerationStatus = "pendiente"
	ModerationApproved    ModerationStatus = "aprobado"
	ModerationCorrections ModerationStatus = "correcciones"
	ModerationRejected    ModerationStatus = "rechazado"
)

// Publication is a thesis or article shared on the platform.
type Publication struct {
	ID          int               `db:"id" json:"id_publicacion"`
	Title       string            `db:"title" json:"titulo"`
	Description string            `db:"description" json:"descripcion"`
	Status      *ModerationStatus `db:"status" json:"estatus"`
	CoverPath   *string           `db:"cover_path" json:"imagen,omitempty"`
	Views       int               `db:"views" json:"vistas"`
	Downloads   int               `db:"downloads" json:"descargas"`
	PublishedAt time.Time         `db:"published_at" json:"fecha"`
}

// PublicationMember is an author of a publication. The first member is the
// owner who uploaded the work.
type PublicationMember struct {
	PublicationID int    `db:"publication_id" json:"id_publicacion"`
	Matricula     string `db:"matricula" json:"matricula"`
	FirstName     string `db:"first_name" json:"nombre"`
	LastName      string `db:"last_name" json:"apellido"`
}

// PublicationFile is an attachment stored on disk.
type PublicationFile struct {
	ID            int    `db:"id" json:"id_archivo"`
	PublicationID int    `db:"publication_id" json:"-"`
	FileName      string `db:"file_name" json:"nombre"`
	FilePath      string `db:"file_path" json:"ruta"`
}

// Tag is a free-form label attached to publications.
type Tag struct {
	ID   int    `db:"id" json:"id_tag"`
	Name string `db:"name" json:"nombre"`
}

// Comment is a reader comment on a publication.
type Comment struct {
	ID            int       `db:"id" json:"id_comentario"`
	PublicationID int       `db:"publication_id" json:"-"`
	Matricula     string    `db:"matricula" json:"matricula"`
	FirstName     string    `db:"first_name" json:"nombre"`
	LastName      string    `db:"last_name" json:"apellido"`
	AvatarPath    *string   `db:"avatar_path" json:"imagen,omitempty"`
	Body          string    `db:"body" json:"comentario"`
	CreatedAt     time.Time `db:"created_at" json:"fecha"`
}

// Rating is a 1..5 score a user gives a publication, at most once.
type Rating struct {
	PublicationID int    `db:"publication_id" json:"-"`
	Matricula     string `db:"matricula" json:"matricula"`
	Score         int    `db:"score" json:"calificacion"`
}

// PublicationSummary is a card in listings and search results. Rating is the
// average formatted to one decimal, "0.0" when nobody has rated; Authors and
// Tags are display strings assembled by the query.
type PublicationSummary struct {
	ID          int       `db:"id" json:"id_publicacion"`
	Title       string    `db:"title" json:"titulo"`
	Description string    `db:"description" json:"descripcion"`
	CoverPath   *string   `db:"cover_path" json:"imagen,omitempty"`
	Views       int       `db:"views" json:"vistas"`
	Downloads   int       `db:"downloads" json:"descargas"`
	PublishedAt time.Time `db:"published_at" json:"-"`
	Rating      string    `db:"rating" json:"calificacion"`
	Authors     string    `db:"authors" json:"autores"`
	Tags        string    `db:"tags" json:"tags"`
	TimeAgo     string    `db:"-" json:"hace_cuanto"`
}
