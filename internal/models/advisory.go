package models

import "time"

// AdvisoryStatus is the lifecycle state of a student-advisor pairing.
type AdvisoryStatus int

const (
	AdvisoryPending AdvisoryStatus = 0
	AdvisoryActive  AdvisoryStatus = 1
	AdvisoryClosed  AdvisoryStatus = 2
)

// Advisory links a student with the advisor who reviews their work.
type Advisory struct {
	ID               int            `db:"id" json:"id_asesoria"`
	AdvisorMatricula string         `db:"advisor_matricula" json:"matricula_asesor"`
	StudentMatricula string         `db:"student_matricula" json:"matricula_estudiante"`
	Status           AdvisoryStatus `db:"status" json:"estado"`
	RequestedAt      time.Time      `db:"requested_at" json:"fecha_solicitud"`
}

// AdvisoryStudent is a pending request or active advisee with the student
// profile columns the advisor-facing lists need.
type AdvisoryStudent struct {
	AdvisoryID  int       `db:"advisory_id" json:"id_asesoria"`
	RequestedAt time.Time `db:"requested_at" json:"fecha_solicitud"`
	Matricula   string    `db:"matricula" json:"matricula"`
	FirstName   string    `db:"first_name" json:"nombre"`
	LastName    string    `db:"last_name" json:"apellido"`
	AvatarPath  *string   `db:"avatar_path" json:"imagen,omitempty"`
	Major       *string   `db:"major" json:"carrera,omitempty"`
	Semester    *string   `db:"semester" json:"semestre,omitempty"`
}

// CurrentAdvisor is the student's view of their advisory pairing, enriched
// with the advisor's profile, interests and network counts.
type CurrentAdvisor struct {
	AdvisoryID  int            `db:"advisory_id" json:"id_asesoria"`
	RequestedAt time.Time      `db:"requested_at" json:"fecha_solicitud"`
	Status      AdvisoryStatus `db:"status" json:"estado"`
	Matricula   string         `db:"matricula" json:"matricula"`
	FirstName   string         `db:"first_name" json:"nombre"`
	LastName    string         `db:"last_name" json:"apellido"`
	Email       string         `db:"email" json:"correo"`
	Role        Role           `db:"role" json:"-"`
	AvatarPath  *string        `db:"avatar_path" json:"imagen,omitempty"`
	Major       *string        `db:"major" json:"carrera,omitempty"`
	Semester    *string        `db:"semester" json:"semestre,omitempty"`
	Bio         *string        `db:"bio" json:"biografia,omitempty"`
	Location    *string        `db:"location" json:"ubicacion,omitempty"`
	Interests   string         `db:"interests" json:"intereses"`
	Followers   int            `db:"followers" json:"seguidores"`
	Following   int            `db:"following" json:"seguidos"`
}
