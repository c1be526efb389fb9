// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
)

// ErrNoProfile is returned when a student caller has no student profile.
var ErrNoProfile = errors.New("student profile not found")

// WorkshopStore persists workshops.
type WorkshopStore interface {
	Create(ctx context.Context, req model.CreateWorkshopRequest) (*model.Workshop, error)
	GetByID(ctx context.Context, id string) (*model.Workshop, error)
	List(ctx context.Context, f model.WorkshopFilter) ([]model.Workshop, error)
	Update(ctx context.Context, id string, patch repository.WorkshopPatch) (*model.Workshop, error)
	Seats(ctx context.Context, id string) (model.SeatSummary, error)
}

// EnrollmentStore persists enrollments. Enroll must re-check both enrollment
// invariants atomically with the insert.
type EnrollmentStore interface {
	HasActive(ctx context.Context, studentID string) (bool, error)
	Enroll(ctx context.Context, studentID, workshopID, comment string) (*model.Enrollment, error)
	Cancel(ctx context.Context, id, reason string) (*model.Enrollment, error)
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	List(ctx context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error)
}

// AccountStore persists users and student profiles.
type AccountStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	CreateStudent(ctx context.Context, u *model.User, p *model.StudentProfile) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetProfileByUserID(ctx context.Context, userID string) (*model.StudentProfile, error)
	GetProfileByID(ctx context.Context, id string) (*model.StudentProfile, error)
}

// TokenIssuer signs bearer tokens for an identity.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

// OutcomeRecorder counts enrollment operation outcomes.
type OutcomeRecorder interface {
	RecordEnrollment(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordEnrollment(string, string) {}

// IsDomainError reports whether err is an expected, caller-recoverable
// outcome rather than an infrastructure failure.
func IsDomainError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrNoProfile) ||
		errors.Is(err, auth.ErrUnauthenticated) ||
		errors.Is(err, auth.ErrForbidden) ||
		errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrWorkshopNotFound) ||
		errors.Is(err, repository.ErrWorkshopFull) ||
		errors.Is(err, repository.ErrAlreadyEnrolled) ||
		errors.Is(err, repository.ErrCapacityBelowActive) ||
		errors.Is(err, repository.ErrDuplicate)
}
