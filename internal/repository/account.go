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

const (
	userColumns    = `id, email, password_hash, role, created_at`
	profileColumns = `id, user_id, first_name, last_name, control_number, group_name, semester, created_at`
)

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanProfile(row pgx.Row) (*model.StudentProfile, error) {
	var p model.StudentProfile
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.ControlNumber, &p.Group, &p.Semester, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AccountRepository handles persistence for users and student profiles.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository constructs an AccountRepository.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateUser inserts a user, assigning its id and creation time.
func (r *AccountRepository) CreateUser(ctx context.Context, u *model.User) error {
	return insertUser(ctx, r.db, u)
}

// CreateStudent inserts a student user and its profile in one transaction.
func (r *AccountRepository) CreateStudent(ctx context.Context, u *model.User, p *model.StudentProfile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}

	p.ID = uuid.New().String()
	p.UserID = u.ID
	p.CreatedAt = u.CreatedAt
	_, err = tx.Exec(ctx,
		`INSERT INTO student_profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, p.FirstName, p.LastName, p.ControlNumber, p.Group, p.Semester, p.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "student_profiles_control_number_key" {
				return duplicate("control number")
			}
			return duplicate("student profile")
		}
		return fmt.Errorf("insert student profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertUser(ctx context.Context, q querier, u *model.User) error {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()
	_, err := q.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return duplicate("email")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns a user by email or ErrNotFound.
func (r *AccountRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID returns a user by id or ErrNotFound.
func (r *AccountRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetProfileByUserID returns the student profile of a user or ErrNotFound.
func (r *AccountRepository) GetProfileByUserID(ctx context.Context, userID string) (*model.StudentProfile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM student_profiles WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetProfileByID returns a student profile by id or ErrNotFound.
func (r *AccountRepository) GetProfileByID(ctx context.Context, id string) (*model.StudentProfile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM student_profiles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}
