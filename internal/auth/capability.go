package auth

import (
	"errors"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

var (
	// ErrUnauthenticated is returned when an operation needs a caller and has none.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller lacks the capability for an operation.
	ErrForbidden = errors.New("forbidden")
)

// Identity is the caller of a service operation as resolved by the router.
// ProfileID is set for students that completed registration.
type Identity struct {
	UserID    string
	Role      model.Role
	ProfileID string
}

// Anonymous reports whether the identity carries no user.
func (id Identity) Anonymous() bool {
	return id.UserID == ""
}

// Is reports whether the identity has one of the given roles.
func (id Identity) Is(roles ...model.Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// Require checks that the caller is authenticated and holds one of roles.
// With no roles any authenticated caller passes.
func Require(id Identity, roles ...model.Role) error {
	if id.Anonymous() {
		return ErrUnauthenticated
	}
	if len(roles) == 0 || id.Is(roles...) {
		return nil
	}
	return ErrForbidden
}

// RequireOwnerOr passes when the caller owns the student profile
// ownerProfileID, or holds one of roles.
func RequireOwnerOr(id Identity, ownerProfileID string, roles ...model.Role) error {
	if id.Anonymous() {
		return ErrUnauthenticated
	}
	if id.ProfileID != "" && id.ProfileID == ownerProfileID {
		return nil
	}
	if id.Is(roles...) {
		return nil
	}
	return ErrForbidden
}
