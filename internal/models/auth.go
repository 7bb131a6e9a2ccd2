package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Matricula string `json:"matricula"`
	Role      Role   `json:"rol"`
	Name      string `json:"nombre"`
	jwt.RegisteredClaims
}

// VerificationCode is a store-backed one-time code mailed to a user. Codes
// survive restarts and are shared across instances, unlike the in-memory map
// the first iteration of the platform used.
type VerificationCode struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	Used      bool      `db:"used"`
	CreatedAt time.Time `db:"created_at"`
}

// AccessCode is a one-time invitation required to register as an advisor.
type AccessCode struct {
	Code       string  `db:"code"`
	TargetRole *Role   `db:"target_role"`
	Used       bool    `db:"used"`
	UsedBy     *string `db:"used_by"`
}
