package models

import "time"

// Role is the numeric role code stored with each user. The legacy API speaks
// in these codes, so labels are resolved here exactly once.
type Role int

const (
	RoleAdmin   Role = 1
	RoleAdvisor Role = 2
	RoleStudent Role = 3
)

// Label returns the Spanish display name clients expect.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleAdvisor:
		return "Asesor"
	case RoleStudent:
		return "Estudiante"
	default:
		return "Desconocido"
	}
}

// Valid reports whether the code maps to a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAdvisor || r == RoleStudent
}

// AccountStatus tracks whether an account can act on the platform.
type AccountStatus int

const (
	StatusInactive        AccountStatus = 0
	StatusActive          AccountStatus = 1
	StatusPendingApproval AccountStatus = 2
)

// User represents a registered member keyed by their registration number.
type User struct {
	Matricula    string        `db:"matricula" json:"matricula"`
	FirstName    string        `db:"first_name" json:"nombre"`
	LastName     string        `db:"last_name" json:"apellido"`
	Email        string        `db:"email" json:"correo"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Role         Role          `db:"role" json:"rol"`
	Status       AccountStatus `db:"status" json:"estado"`
	AvatarPath   *string       `db:"avatar_path" json:"imagen,omitempty"`
	Major        *string       `db:"major" json:"carrera,omitempty"`
	Semester     *string       `db:"semester" json:"semestre,omitempty"`
	Bio          *string       `db:"bio" json:"biografia,omitempty"`
	Location     *string       `db:"location" json:"ubicacion,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"-"`
}

// FullName joins first and last name for display strings.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// NetworkStats carries denormalized follower counters for a profile.
type NetworkStats struct {
	Followers int `db:"followers" json:"seguidores"`
	Following int `db:"following" json:"seguidos"`
}

// PublicationHighlights summarizes a user's publishing record for the
// profile page.
type PublicationHighlights struct {
	Total    int     `db:"total" json:"total_publicaciones"`
	Featured *string `db:"featured" json:"publicacion_destacada"`
}

// Interest is one topic from the shared catalog.
type Interest struct {
	ID   int    `db:"id" json:"id_interes"`
	Name string `db:"name" json:"nombre"`
}
