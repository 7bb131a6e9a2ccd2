package dto

import "github.com/teshub/teshub-api/internal/models"

// UpdateProfileRequest carries the editable profile fields. Pointer fields
// left nil are not touched.
type UpdateProfileRequest struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Major     *string `json:"carrera"`
	Semester  *string `json:"semestre"`
	Bio       *string `json:"biografia"`
	Location  *string `json:"ubicacion"`
}

// UpdateEmailRequest changes the account email after code verification.
type UpdateEmailRequest struct {
	NewEmail string `json:"correo" binding:"required,email"`
	Code     string `json:"codigo" binding:"required,len=6"`
}

// RequestEmailCodeRequest asks for a verification code to be mailed to the
// address the user wants to switch to.
type RequestEmailCodeRequest struct {
	NewEmail string `json:"correo" binding:"required,email"`
}

// ProfileResponse is the full public profile with network counters,
// publishing highlights and interests.
type ProfileResponse struct {
	models.User
	Stats               models.NetworkStats `json:"red"`
	TotalPublications   int                 `json:"total_publicaciones"`
	FeaturedPublication *string             `json:"publicacion_destacada"`
	Interests           []models.Interest   `json:"intereses"`
	IsFollowing         bool                `json:"siguiendo"`
}

// ReplaceInterestsRequest overwrites the caller's interest list.
type ReplaceInterestsRequest struct {
	InterestIDs []int `json:"intereses" binding:"required"`
}
