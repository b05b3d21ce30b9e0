package auth

import (
	"github.com/angelmondragon/rentalz-backend/internal/users"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the public customer sign-up payload.
type RegisterRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// StaffRegisterRequest lets an admin create employee or admin accounts.
type StaffRegisterRequest struct {
	RegisterRequest
	Role enums.Role `json:"role" validate:"required"`
}

// RefreshRequest carries the refresh token; the access token travels in the
// Authorization header and may already be expired.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *users.Profile `json:"user"`
}

// TokenPair is returned by refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
