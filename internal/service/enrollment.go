package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
)

// EnrollmentService mediates creation and cancellation of enrollments.
// It holds no state between calls: seat counts are always derived by the
// store at decision time.
type EnrollmentService struct {
	workshops   WorkshopStore
	enrollments EnrollmentStore
	outcomes    OutcomeRecorder
	log         logrus.FieldLogger
}

// NewEnrollmentService constructs an EnrollmentService with its dependencies.
// A nil recorder disables outcome counting.
func NewEnrollmentService(
	workshops WorkshopStore,
	enrollments EnrollmentStore,
	outcomes OutcomeRecorder,
	log logrus.FieldLogger,
) *EnrollmentService {
	if outcomes == nil {
		outcomes = noopRecorder{}
	}
	return &EnrollmentService{workshops: workshops, enrollments: enrollments, outcomes: outcomes, log: log}
}

// CheckEligibility evaluates, without side effects, whether the student
// could enroll into the workshop right now.
func (s *EnrollmentService) CheckEligibility(ctx context.Context, studentID, workshopID string) (model.Eligibility, error) {
	if err := requireUUID("student_id", studentID); err != nil {
		return model.Eligibility{}, err
	}
	if err := requireUUID("workshop_id", workshopID); err != nil {
		return model.Eligibility{}, err
	}

	enrolled, err := s.enrollments.HasActive(ctx, studentID)
	if err != nil {
		return model.Eligibility{}, fmt.Errorf("check eligibility: %w", err)
	}

	seats, err := s.workshops.Seats(ctx, workshopID)
	found := true
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Eligibility{}, fmt.Errorf("check eligibility: %w", err)
		}
		found = false
	}

	switch {
	case enrolled:
		return model.Eligibility{Reason: model.ReasonAlreadyEnrolled, RemainingSeats: seats.RemainingSeats}, nil
	case !found || !seats.Active:
		return model.Eligibility{Reason: model.ReasonWorkshopNotFound}, nil
	case seats.RemainingSeats <= 0:
		return model.Eligibility{Reason: model.ReasonFull}, nil
	}
	return model.Eligibility{Eligible: true, RemainingSeats: seats.RemainingSeats}, nil
}

// EligibilityFor runs CheckEligibility for a student caller's own profile.
func (s *EnrollmentService) EligibilityFor(ctx context.Context, caller auth.Identity, workshopID string) (model.Eligibility, error) {
	if err := requireStudentProfile(caller); err != nil {
		return model.Eligibility{}, err
	}
	return s.CheckEligibility(ctx, caller.ProfileID, workshopID)
}

// Enroll creates an active enrollment for the calling student. The
// eligibility rules are re-checked by the store inside the inserting
// transaction; a prior CheckEligibility verdict is never trusted.
func (s *EnrollmentService) Enroll(ctx context.Context, caller auth.Identity, workshopID string, req model.EnrollRequest) (*model.Enrollment, error) {
	if err := requireStudentProfile(caller); err != nil {
		return nil, err
	}
	if err := requireUUID("workshop_id", workshopID); err != nil {
		return nil, err
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	e, err := s.enrollments.Enroll(ctx, caller.ProfileID, workshopID, req.Comment)
	s.outcomes.RecordEnrollment("enroll", outcomeOf(err))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNoProfile
		case errors.Is(err, repository.ErrAlreadyEnrolled),
			errors.Is(err, repository.ErrWorkshopFull),
			errors.Is(err, repository.ErrWorkshopNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("enroll: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"enrollment_id": e.ID,
		"student_id":    e.StudentID,
		"workshop_id":   e.WorkshopID,
	}).Info("enrollment created")
	return e, nil
}

// Cancel moves an active enrollment to cancelled. Only the owning student
// or an admin may cancel. Cancelling a row that is not active is rejected
// with repository.ErrNotFound.
func (s *EnrollmentService) Cancel(ctx context.Context, caller auth.Identity, enrollmentID string, req model.CancelRequest) (*model.Enrollment, error) {
	if err := auth.Require(caller); err != nil {
		return nil, err
	}
	if err := requireUUID("enrollment_id", enrollmentID); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	current, err := s.enrollments.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel enrollment: %w", err)
	}
	if err := auth.RequireOwnerOr(caller, current.StudentID, model.RoleAdmin); err != nil {
		return nil, err
	}
	if current.State != model.StateActive {
		s.outcomes.RecordEnrollment("cancel", "not_active")
		return nil, repository.ErrNotFound
	}

	e, err := s.enrollments.Cancel(ctx, enrollmentID, req.Reason)
	s.outcomes.RecordEnrollment("cancel", outcomeOf(err))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel enrollment: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"enrollment_id": e.ID,
		"cancelled_by":  caller.UserID,
	}).Info("enrollment cancelled")
	return e, nil
}

// ListEnrollments returns a filtered, paginated projection of enrollments.
// Admins may list anything; instructors only the workshops assigned to them.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, caller auth.Identity, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	if err := auth.Require(caller, model.RoleAdmin, model.RoleInstructor); err != nil {
		return nil, err
	}
	f, err := normalizeEnrollmentFilter(f)
	if err != nil {
		return nil, err
	}

	if caller.Is(model.RoleInstructor) {
		if f.WorkshopID == "" {
			return nil, auth.ErrForbidden
		}
		if err := s.requireInstructorOf(ctx, caller, f.WorkshopID); err != nil {
			return nil, err
		}
	}

	out, err := s.enrollments.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return out, nil
}

// WorkshopEnrollments lists the enrollments of one workshop.
func (s *EnrollmentService) WorkshopEnrollments(ctx context.Context, caller auth.Identity, workshopID string, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	if err := auth.Require(caller, model.RoleAdmin, model.RoleInstructor); err != nil {
		return nil, err
	}
	if err := requireUUID("workshop_id", workshopID); err != nil {
		return nil, err
	}
	if _, err := s.workshops.GetByID(ctx, workshopID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get workshop: %w", err)
	}
	f.WorkshopID = workshopID
	return s.ListEnrollments(ctx, caller, f)
}

// MyEnrollments returns every enrollment of the calling student, newest first.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, caller auth.Identity) ([]model.EnrollmentDetail, error) {
	if err := requireStudentProfile(caller); err != nil {
		return nil, err
	}
	out, err := s.enrollments.List(ctx, model.EnrollmentFilter{StudentID: caller.ProfileID, Limit: maxPageSize})
	if err != nil {
		return nil, fmt.Errorf("list own enrollments: %w", err)
	}
	return out, nil
}

// Seats returns the derived seat summary of a workshop.
func (s *EnrollmentService) Seats(ctx context.Context, workshopID string) (model.SeatSummary, error) {
	if err := requireUUID("workshop_id", workshopID); err != nil {
		return model.SeatSummary{}, err
	}
	seats, err := s.workshops.Seats(ctx, workshopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.SeatSummary{}, err
		}
		return model.SeatSummary{}, fmt.Errorf("get seats: %w", err)
	}
	return seats, nil
}

func (s *EnrollmentService) requireInstructorOf(ctx context.Context, caller auth.Identity, workshopID string) error {
	w, err := s.workshops.GetByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("get workshop: %w", err)
	}
	if w.InstructorID == nil || *w.InstructorID != caller.UserID {
		return auth.ErrForbidden
	}
	return nil
}

func requireStudentProfile(caller auth.Identity) error {
	if err := auth.Require(caller, model.RoleStudent); err != nil {
		return err
	}
	if caller.ProfileID == "" {
		return ErrNoProfile
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, repository.ErrWorkshopFull):
		return "full"
	case errors.Is(err, repository.ErrWorkshopNotFound):
		return "workshop_not_found"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	}
	return "error"
}
