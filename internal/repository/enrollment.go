package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

const enrollmentColumns = `id, student_id, workshop_id, state, comment, created_at, updated_at`

func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.WorkshopID, &e.State, &e.Comment, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EnrollmentRepository handles persistence for enrollments.
type EnrollmentRepository struct {
	db *pgxpool.Pool
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// HasActive reports whether the student holds an active enrollment anywhere.
func (r *EnrollmentRepository) HasActive(ctx context.Context, studentID string) (bool, error) {
	return hasActive(ctx, r.db, studentID)
}

func hasActive(ctx context.Context, q querier, studentID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND state = 'active')`,
		studentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return exists, nil
}

// Enroll creates an active enrollment after re-checking both enrollment
// invariants inside one transaction.
//
// Two concurrent calls for the last seat of a workshop would both pass a
// plain count-then-insert. Instead the transaction takes row locks with
// SELECT … FOR UPDATE, always in the order student profile, then workshop:
//
//   - the student lock serializes one student's attempts across workshops;
//   - the workshop lock serializes everyone's attempts on that workshop, so
//     the active count read below cannot change before the insert commits.
//
// Under READ COMMITTED each statement sees rows committed before it started,
// so the count taken after acquiring the workshop lock includes every
// enrollment committed by the previous lock holder.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, workshopID, comment string) (*model.Enrollment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Step 1: lock the student profile.
	var lockedStudent string
	err = tx.QueryRow(ctx,
		`SELECT id FROM student_profiles WHERE id = $1 FOR UPDATE`,
		studentID,
	).Scan(&lockedStudent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock student row: %w", err)
	}

	// Step 2: one active enrollment per student.
	active, err := hasActive(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadyEnrolled
	}

	// Step 3: lock the workshop row.
	var capacity int
	var workshopActive bool
	err = tx.QueryRow(ctx,
		`SELECT capacity, active FROM workshops WHERE id = $1 FOR UPDATE`,
		workshopID,
	).Scan(&capacity, &workshopActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("lock workshop row: %w", err)
	}
	if !workshopActive {
		return nil, ErrWorkshopNotFound
	}

	// Step 4: derived seats, never a stored counter.
	taken, err := countActive(ctx, tx, workshopID)
	if err != nil {
		return nil, err
	}
	if taken >= capacity {
		return nil, ErrWorkshopFull
	}

	// Step 5: insert.
	now := time.Now().UTC()
	e := &model.Enrollment{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		WorkshopID: workshopID,
		State:      model.StateActive,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO enrollments (id, student_id, workshop_id, state, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.StudentID, e.WorkshopID, e.State, e.Comment, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return e, nil
}

// Cancel moves an active enrollment to cancelled, appending reason to the
// existing comment. Missing or non-active enrollments yield ErrNotFound.
func (r *EnrollmentRepository) Cancel(ctx context.Context, id, reason string) (*model.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx,
		`UPDATE enrollments
		 SET state = 'cancelled',
		     comment = CASE
		         WHEN $2::text = '' THEN comment
		         WHEN comment = '' THEN $2::text
		         ELSE comment || E'\n' || $2::text
		     END,
		     updated_at = now()
		 WHERE id = $1 AND state = 'active'
		 RETURNING `+enrollmentColumns,
		id, reason,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cancel enrollment: %w", err)
	}
	return e, nil
}

// GetByID returns a single enrollment or ErrNotFound.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// List returns enrollments joined with student and workshop names, newest first.
func (r *EnrollmentRepository) List(ctx context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	var where whereBuilder
	if f.StudentID != "" {
		where.add("e.student_id = $%d", f.StudentID)
	}
	if f.WorkshopID != "" {
		where.add("e.workshop_id = $%d", f.WorkshopID)
	}
	if f.State != "" {
		where.add("e.state = $%d", string(f.State))
	}
	if f.Search != "" {
		where.add("(s.first_name ILIKE $%[1]d OR s.last_name ILIKE $%[1]d OR s.control_number ILIKE $%[1]d)",
			"%"+escapeLike(f.Search)+"%")
	}

	query := `SELECT e.id, e.student_id, e.workshop_id, e.state, e.comment, e.created_at, e.updated_at,
	                 s.first_name, s.last_name, s.control_number, w.name
	          FROM enrollments e
	          JOIN student_profiles s ON s.id = e.student_id
	          JOIN workshops w ON w.id = e.workshop_id` +
		where.sql() +
		` ORDER BY e.created_at DESC, e.id ASC` +
		where.page(f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []model.EnrollmentDetail
	for rows.Next() {
		var d model.EnrollmentDetail
		if err := rows.Scan(
			&d.ID, &d.StudentID, &d.WorkshopID, &d.State, &d.Comment, &d.CreatedAt, &d.UpdatedAt,
			&d.StudentFirstName, &d.StudentLastName, &d.ControlNumber, &d.WorkshopName,
		); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE wildcards so a search term matches literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
