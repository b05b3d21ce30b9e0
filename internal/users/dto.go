package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/rentalz-backend/pkg/db/models"
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
)

// Profile is the public view of an account. The password hash never leaves
// this package.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func ProfileOf(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// NewUser is a registration that already passed validation and hashing.
// Role defaults to CUSTOMER.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.Role
}

func (n NewUser) model() *models.User {
	role := n.Role
	if role == "" {
		role = enums.RoleCustomer
	}
	return &models.User{
		Email:        foldEmail(n.Email),
		PasswordHash: n.PasswordHash,
		FirstName:    n.FirstName,
		LastName:     n.LastName,
		Phone:        n.Phone,
		Role:         role,
		IsActive:     true,
	}
}

// UpdateProfileInput is the PATCH /users/me body. Nil fields are left alone;
// an empty phone clears it.
type UpdateProfileInput struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}
