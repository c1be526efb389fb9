//go:build integration

package repository

import (
	"context"
	"errors"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/database"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

type fixture struct {
	pool        *pgxpool.Pool
	workshops   *WorkshopRepository
	enrollments *EnrollmentRepository
	accounts    *AccountRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration")
	}

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	u.Scheme = database.MigrationScheme
	_, err = database.Migrate(u.String())
	require.NoError(t, err)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE enrollments, workshops, student_profiles, users CASCADE`)
	require.NoError(t, err)

	return &fixture{
		pool:        pool,
		workshops:   NewWorkshopRepository(pool),
		enrollments: NewEnrollmentRepository(pool),
		accounts:    NewAccountRepository(pool),
	}
}

func (f *fixture) student(t *testing.T, control string) *model.StudentProfile {
	t.Helper()
	u := &model.User{Email: control + "@school.test", PasswordHash: "x", Role: model.RoleStudent}
	p := &model.StudentProfile{FirstName: "Test", LastName: control, ControlNumber: control, Semester: 1}
	require.NoError(t, f.accounts.CreateStudent(context.Background(), u, p))
	return p
}

func (f *fixture) workshop(t *testing.T, capacity int) *model.Workshop {
	t.Helper()
	w, err := f.workshops.Create(context.Background(), model.CreateWorkshopRequest{
		Name: "Workshop", Category: "test", Capacity: capacity,
	})
	require.NoError(t, err)
	return w
}

func TestPostgres_EnrollAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "A001")
	w := f.workshop(t, 2)

	e, err := f.enrollments.Enroll(ctx, s.ID, w.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, e.State)

	_, err = f.enrollments.Enroll(ctx, s.ID, w.ID, "")
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	seats, err := f.workshops.Seats(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, seats.RemainingSeats)

	cancelled, err := f.enrollments.Cancel(ctx, e.ID, "moved")
	require.NoError(t, err)
	assert.Equal(t, "hello\nmoved", cancelled.Comment)

	_, err = f.enrollments.Cancel(ctx, e.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)

	seats, err = f.workshops.Seats(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, seats.RemainingSeats)
}

func TestPostgres_InactiveWorkshop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "A001")
	w := f.workshop(t, 2)

	_, err := f.workshops.Update(ctx, w.ID, WorkshopPatch{Active: ptr(false)})
	require.NoError(t, err)

	_, err = f.enrollments.Enroll(ctx, s.ID, w.ID, "")
	assert.ErrorIs(t, err, ErrWorkshopNotFound)
}

func TestPostgres_ConcurrentEnrollIntoLastSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 1)
	a := f.student(t, "A001")
	b := f.student(t, "B002")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, s := range []*model.StudentProfile{a, b} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.enrollments.Enroll(ctx, id, w.ID, "")
		}(i, s.ID)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrWorkshopFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)

	seats, err := f.workshops.Seats(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, seats.RemainingSeats)
}

func TestPostgres_ConcurrentEnrollSameStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.student(t, "A001")
	w1 := f.workshop(t, 5)
	w2 := f.workshop(t, 5)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, w := range []*model.Workshop{w1, w2} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.enrollments.Enroll(ctx, s.ID, id, "")
		}(i, w.ID)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	}
	assert.Equal(t, 1, ok)

	list, err := f.enrollments.List(ctx, model.EnrollmentFilter{StudentID: s.ID, State: model.StateActive, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgres_CapacityBelowActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.workshop(t, 3)
	for _, cn := range []string{"A001", "B002"} {
		_, err := f.enrollments.Enroll(ctx, f.student(t, cn).ID, w.ID, "")
		require.NoError(t, err)
	}

	_, err := f.workshops.Update(ctx, w.ID, WorkshopPatch{Capacity: ptr(1)})
	assert.ErrorIs(t, err, ErrCapacityBelowActive)
}

func TestPostgres_DuplicateControlNumber(t *testing.T) {
	f := newFixture(t)
	f.student(t, "A001")

	u := &model.User{Email: "other@school.test", PasswordHash: "x", Role: model.RoleStudent}
	p := &model.StudentProfile{FirstName: "X", LastName: "Y", ControlNumber: "A001", Semester: 1}
	err := f.accounts.CreateStudent(context.Background(), u, p)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = f.accounts.GetUserByEmail(context.Background(), "other@school.test")
	assert.ErrorIs(t, err, ErrNotFound)
}
