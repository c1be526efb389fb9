// Package model defines the core domain types for the workshop enrollment system.
package model

import "time"

// Role is the authorization role attached to a user account.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// EnrollmentState is the lifecycle state of an enrollment row.
type EnrollmentState string

const (
	StateActive    EnrollmentState = "active"
	StateCancelled EnrollmentState = "cancelled"
	StateInactive  EnrollmentState = "inactive"
)

// Valid reports whether s is one of the known states.
func (s EnrollmentState) Valid() bool {
	switch s {
	case StateActive, StateCancelled, StateInactive:
		return true
	}
	return false
}

// Ineligibility reasons reported by the eligibility check.
const (
	ReasonAlreadyEnrolled  = "already-enrolled"
	ReasonWorkshopNotFound = "workshop-not-found-or-inactive"
	ReasonFull             = "full"
)

// User is an account that can authenticate against the API.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentProfile holds the school-specific data of a student account.
type StudentProfile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	ControlNumber string    `json:"control_number"`
	Group         string    `json:"group"`
	Semester      int       `json:"semester"`
	CreatedAt     time.Time `json:"created_at"`
}

// Workshop is an extracurricular activity students can enroll into.
type Workshop struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Capacity     int       `json:"capacity"`
	Active       bool      `json:"active"`
	InstructorID *string   `json:"instructor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Enrollment links one student profile to one workshop.
type Enrollment struct {
	ID         string          `json:"id"`
	StudentID  string          `json:"student_id"`
	WorkshopID string          `json:"workshop_id"`
	State      EnrollmentState `json:"state"`
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// EnrollmentDetail is an enrollment joined with the student and workshop
// fields shown in reports.
type EnrollmentDetail struct {
	Enrollment
	StudentFirstName string `json:"student_first_name"`
	StudentLastName  string `json:"student_last_name"`
	ControlNumber    string `json:"control_number"`
	WorkshopName     string `json:"workshop_name"`
}

// SeatSummary is the derived capacity view of a workshop.
// RemainingSeats is always Capacity minus ActiveEnrollments.
type SeatSummary struct {
	WorkshopID        string `json:"workshop_id"`
	Capacity          int    `json:"capacity"`
	ActiveEnrollments int    `json:"active_enrollments"`
	RemainingSeats    int    `json:"remaining_seats"`
	Active            bool   `json:"active"`
}

// NewSeatSummary derives the remaining seats from capacity and active count.
func NewSeatSummary(workshopID string, capacity, active int, workshopActive bool) SeatSummary {
	remaining := capacity - active
	if remaining < 0 {
		remaining = 0
	}
	return SeatSummary{
		WorkshopID:        workshopID,
		Capacity:          capacity,
		ActiveEnrollments: active,
		RemainingSeats:    remaining,
		Active:            workshopActive,
	}
}

// Eligibility is the verdict of a read-only enrollment pre-flight check.
type Eligibility struct {
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason,omitempty"`
	RemainingSeats int    `json:"remaining_seats"`
}

// EnrollmentFilter narrows enrollment listings.
type EnrollmentFilter struct {
	StudentID  string
	WorkshopID string
	// Search matches student first name, last name or control number.
	Search string
	State  EnrollmentState
	Limit  int
	Offset int
}

// WorkshopFilter narrows workshop listings.
type WorkshopFilter struct {
	Category string
	Active   *bool
	Limit    int
	Offset   int
}

// RegisterStudentRequest is the payload for creating a student account.
type RegisterStudentRequest struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	ControlNumber string `json:"control_number" validate:"required,alphanum,max=20"`
	Group         string `json:"group" validate:"max=20"`
	Semester      int    `json:"semester" validate:"gte=1,lte=12"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the payload an admin uses to create staff accounts.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     Role   `json:"role" validate:"required,oneof=instructor admin"`
}

// CreateWorkshopRequest is the payload for creating a workshop.
type CreateWorkshopRequest struct {
	Name         string  `json:"name" validate:"required,max=120"`
	Category     string  `json:"category" validate:"required,max=60"`
	Capacity     int     `json:"capacity" validate:"gte=1,lte=10000"`
	Active       *bool   `json:"active"`
	InstructorID *string `json:"instructor_id" validate:"omitempty,uuid"`
}

// UpdateWorkshopRequest is a partial update; nil fields are left untouched.
// An empty InstructorID clears the assignment.
type UpdateWorkshopRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	Category     *string `json:"category" validate:"omitempty,min=1,max=60"`
	Capacity     *int    `json:"capacity" validate:"omitempty,gte=1,lte=10000"`
	Active       *bool   `json:"active"`
	InstructorID *string `json:"instructor_id"`
}

// EnrollRequest is the payload for enrolling into a workshop.
type EnrollRequest struct {
	Comment string `json:"comment" validate:"max=500"`
}

// CancelRequest is the optional payload for cancelling an enrollment.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// AccountResponse is returned after registration and from /auth/me.
type AccountResponse struct {
	Token   string          `json:"token,omitempty"`
	User    *User           `json:"user"`
	Profile *StudentProfile `json:"profile,omitempty"`
}

// ErrorResponse is the standard JSON error envelope.
// Reason is a stable machine-readable code.
type ErrorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}
