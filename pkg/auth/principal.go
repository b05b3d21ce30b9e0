package auth

import (
	"github.com/angelmondragon/rentalz-backend/pkg/enums"
	"github.com/google/uuid"
)

// Principal is the authenticated caller a service operation runs on behalf of.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

// SystemPrincipal is used by scheduled jobs and webhook reconciliation.
var SystemPrincipal = Principal{Role: enums.RoleAdmin}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.RoleAdmin
}

// IsStaff reports whether the caller may act on resources they do not own.
func (p Principal) IsStaff() bool {
	return p.Role.IsStaff()
}

// Owns reports whether the principal is the owner of a resource.
func (p Principal) Owns(ownerID uuid.UUID) bool {
	return p.UserID != uuid.Nil && p.UserID == ownerID
}

// CanAccess reports whether the principal owns the resource or is an admin.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsAdmin() || p.Owns(ownerID)
}
