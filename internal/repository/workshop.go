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

const workshopColumns = `id, name, category, capacity, active, instructor_id, created_at, updated_at`

func scanWorkshop(row pgx.Row) (*model.Workshop, error) {
	var w model.Workshop
	err := row.Scan(&w.ID, &w.Name, &w.Category, &w.Capacity, &w.Active, &w.InstructorID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// WorkshopRepository handles persistence for workshops.
type WorkshopRepository struct {
	db *pgxpool.Pool
}

// NewWorkshopRepository constructs a WorkshopRepository.
func NewWorkshopRepository(db *pgxpool.Pool) *WorkshopRepository {
	return &WorkshopRepository{db: db}
}

// Create inserts a new workshop and returns it with a generated UUID.
func (r *WorkshopRepository) Create(ctx context.Context, req model.CreateWorkshopRequest) (*model.Workshop, error) {
	now := time.Now().UTC()
	w := &model.Workshop{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Category:     req.Category,
		Capacity:     req.Capacity,
		Active:       true,
		InstructorID: req.InstructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Active != nil {
		w.Active = *req.Active
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO workshops (id, name, category, capacity, active, instructor_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.Name, w.Category, w.Capacity, w.Active, w.InstructorID, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workshop: %w", err)
	}
	return w, nil
}

// GetByID returns a single workshop or ErrNotFound.
func (r *WorkshopRepository) GetByID(ctx context.Context, id string) (*model.Workshop, error) {
	w, err := scanWorkshop(r.db.QueryRow(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get workshop: %w", err)
	}
	return w, nil
}

// List returns workshops ordered by name.
func (r *WorkshopRepository) List(ctx context.Context, f model.WorkshopFilter) ([]model.Workshop, error) {
	var where whereBuilder
	if f.Category != "" {
		where.add("category = $%d", f.Category)
	}
	if f.Active != nil {
		where.add("active = $%d", *f.Active)
	}
	query := `SELECT ` + workshopColumns + ` FROM workshops` + where.sql() +
		` ORDER BY name ASC, id ASC` + where.page(f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer rows.Close()

	var workshops []model.Workshop
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workshop: %w", err)
		}
		workshops = append(workshops, *w)
	}
	return workshops, rows.Err()
}

// Update applies a patch to a workshop. The workshop row is locked for the
// duration of the transaction so a capacity change cannot race an enrollment.
func (r *WorkshopRepository) Update(ctx context.Context, id string, patch WorkshopPatch) (*model.Workshop, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanWorkshop(tx.QueryRow(ctx,
		`SELECT `+workshopColumns+` FROM workshops WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock workshop row: %w", err)
	}

	set := patch.assignments()
	if len(set) == 0 {
		return current, nil
	}

	if patch.Capacity != nil && *patch.Capacity < current.Capacity {
		active, err := countActive(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if *patch.Capacity < active {
			return nil, ErrCapacityBelowActive
		}
	}

	query, args := buildUpdate("workshops", set, id, workshopColumns)
	updated, err := scanWorkshop(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update workshop: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, nil
}

// Seats returns the live capacity view of a workshop, derived by counting
// active enrollments.
func (r *WorkshopRepository) Seats(ctx context.Context, id string) (model.SeatSummary, error) {
	var capacity, active int
	var workshopActive bool
	err := r.db.QueryRow(ctx,
		`SELECT w.capacity, w.active,
		        (SELECT COUNT(*) FROM enrollments e WHERE e.workshop_id = w.id AND e.state = 'active')
		 FROM workshops w
		 WHERE w.id = $1`,
		id,
	).Scan(&capacity, &workshopActive, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SeatSummary{}, ErrNotFound
		}
		return model.SeatSummary{}, fmt.Errorf("count seats: %w", err)
	}
	return model.NewSeatSummary(id, capacity, active, workshopActive), nil
}

func countActive(ctx context.Context, q querier, workshopID string) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE workshop_id = $1 AND state = 'active'`,
		workshopID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return n, nil
}
