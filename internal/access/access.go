// Package access decides whether the caller may touch another user's
// records: AEs see their own, admins see everyone's.
package access

import (
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/apperr"
	"github.com/hugh/salespulse/internal/database/models"
)

type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) CanAccess(userID uuid.UUID) bool {
	return a.IsAdmin() || a.ID == userID
}

// Require returns an apperr.ErrForbidden error unless a may access userID.
func (a Actor) Require(userID uuid.UUID) error {
	if a.CanAccess(userID) {
		return nil
	}
	return apperr.Forbidden("access to another user's records")
}
