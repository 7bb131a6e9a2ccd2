package dto

import "github.com/teshub/teshub-api/internal/models"

// RegisterRequest is the payload for account creation. Advisors must attach
// a valid access code; students register without one. Role is optional and
// defaults to student, password composition is checked in the service.
type RegisterRequest struct {
	Matricula  string      `json:"matricula" binding:"required,matricula"`
	FirstName  string      `json:"nombre" binding:"required"`
	LastName   string      `json:"apellido" binding:"required"`
	Email      string      `json:"correo" binding:"required,email"`
	Password   string      `json:"contrasena" binding:"required"`
	Role       models.Role `json:"rol"`
	AccessCode string      `json:"codigo"`
	Major      *string     `json:"carrera"`
	Semester   *string     `json:"semestre"`
}

// LoginRequest carries credentials for /auth/login. Accounts sign in with
// their registered email.
type LoginRequest struct {
	Email    string `json:"correo" binding:"required,email"`
	Password string `json:"contrasena" binding:"required"`
}

// LoginResponse returns the signed token plus the identity the client
// caches.
type LoginResponse struct {
	Token     string      `json:"token"`
	Matricula string      `json:"matricula"`
	Name      string      `json:"nombre"`
	Role      models.Role `json:"rol"`
}

// RecoverRequest starts a password reset by mailing a verification code.
type RecoverRequest struct {
	Email string `json:"correo" binding:"required,email"`
}

// ResetPasswordRequest completes a reset with the mailed code.
type ResetPasswordRequest struct {
	Email       string `json:"correo" binding:"required,email"`
	Code        string `json:"codigo" binding:"required,len=6"`
	NewPassword string `json:"contrasena" binding:"required"`
}

// ChangePasswordRequest updates the password of the authenticated user.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"contrasena_actual" binding:"required"`
	NewPassword     string `json:"contrasena_nueva" binding:"required"`
}
