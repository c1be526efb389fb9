// Package storetest provides an in-memory implementation of the service
// store interfaces for tests. A single mutex stands in for the database's
// row locks, so every mutating call is serialized the way the Postgres
// transactions in package repository are.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
)

// Store is the shared in-memory database. Use its Workshops, Enrollments
// and Accounts views as the service store implementations.
type Store struct {
	mu sync.Mutex

	users       map[string]*model.User
	profiles    map[string]*model.StudentProfile
	workshops   map[string]*model.Workshop
	enrollments map[string]*model.Enrollment
	seq         int64

	// ErrorOnNextCall, when set, is returned (and cleared) by the next call.
	ErrorOnNextCall error

	Workshops   *Workshops
	Enrollments *Enrollments
	Accounts    *Accounts
}

// New creates an empty Store.
func New() *Store {
	s := &Store{
		users:       make(map[string]*model.User),
		profiles:    make(map[string]*model.StudentProfile),
		workshops:   make(map[string]*model.Workshop),
		enrollments: make(map[string]*model.Enrollment),
	}
	s.Workshops = &Workshops{s: s}
	s.Enrollments = &Enrollments{s: s}
	s.Accounts = &Accounts{s: s}
	return s
}

// checkError returns and clears any injected error. Callers hold mu.
func (s *Store) checkError() error {
	if s.ErrorOnNextCall != nil {
		err := s.ErrorOnNextCall
		s.ErrorOnNextCall = nil
		return err
	}
	return nil
}

// now returns strictly increasing timestamps so ordering is deterministic.
func (s *Store) now() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Millisecond)
}

func (s *Store) countActive(workshopID string) int {
	n := 0
	for _, e := range s.enrollments {
		if e.WorkshopID == workshopID && e.State == model.StateActive {
			n++
		}
	}
	return n
}

func (s *Store) hasActive(studentID string) bool {
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.State == model.StateActive {
			return true
		}
	}
	return false
}

// EnrollmentCount returns the number of stored enrollments in state.
// An empty state counts all rows.
func (s *Store) EnrollmentCount(state model.EnrollmentState) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.enrollments {
		if state == "" || e.State == state {
			n++
		}
	}
	return n
}

// AddStudent stores a student user with a profile and returns the profile.
func (s *Store) AddStudent(firstName, lastName, controlNumber string) *model.StudentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{
		ID:    uuid.New().String(),
		Email: strings.ToLower(controlNumber) + "@school.test",
		Role:  model.RoleStudent,
	}
	u.CreatedAt = s.now()
	p := &model.StudentProfile{
		ID:            uuid.New().String(),
		UserID:        u.ID,
		FirstName:     firstName,
		LastName:      lastName,
		ControlNumber: controlNumber,
		Semester:      1,
		CreatedAt:     u.CreatedAt,
	}
	s.users[u.ID] = u
	s.profiles[p.ID] = p
	return cloneProfile(p)
}

// AddUser stores a user with the given role and returns it.
func (s *Store) AddUser(email string, role model.Role) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &model.User{ID: uuid.New().String(), Email: email, Role: role, CreatedAt: s.now()}
	s.users[u.ID] = u
	cp := *u
	return &cp
}

// AddWorkshop stores a workshop and returns it.
func (s *Store) AddWorkshop(name string, capacity int, active bool) *model.Workshop {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w := &model.Workshop{
		ID:        uuid.New().String(),
		Name:      name,
		Category:  "general",
		Capacity:  capacity,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.workshops[w.ID] = w
	return cloneWorkshop(w)
}

func cloneWorkshop(w *model.Workshop) *model.Workshop {
	cp := *w
	if w.InstructorID != nil {
		id := *w.InstructorID
		cp.InstructorID = &id
	}
	return &cp
}

func cloneProfile(p *model.StudentProfile) *model.StudentProfile {
	cp := *p
	return &cp
}

// Workshops implements service.WorkshopStore.
type Workshops struct{ s *Store }

func (w *Workshops) Create(_ context.Context, req model.CreateWorkshopRequest) (*model.Workshop, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	now := s.now()
	ws := &model.Workshop{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Category:  req.Category,
		Capacity:  req.Capacity,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Active != nil {
		ws.Active = *req.Active
	}
	if req.InstructorID != nil {
		id := *req.InstructorID
		ws.InstructorID = &id
	}
	s.workshops[ws.ID] = ws
	return cloneWorkshop(ws), nil
}

func (w *Workshops) GetByID(_ context.Context, id string) (*model.Workshop, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	ws, ok := s.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneWorkshop(ws), nil
}

func (w *Workshops) List(_ context.Context, f model.WorkshopFilter) ([]model.Workshop, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	var out []model.Workshop
	for _, ws := range s.workshops {
		if f.Category != "" && ws.Category != f.Category {
			continue
		}
		if f.Active != nil && ws.Active != *f.Active {
			continue
		}
		out = append(out, *cloneWorkshop(ws))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (w *Workshops) Update(_ context.Context, id string, p repository.WorkshopPatch) (*model.Workshop, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	ws, ok := s.workshops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Empty() {
		return cloneWorkshop(ws), nil
	}
	if p.Capacity != nil && *p.Capacity < s.countActive(id) {
		return nil, repository.ErrCapacityBelowActive
	}
	if p.Name != nil {
		ws.Name = *p.Name
	}
	if p.Category != nil {
		ws.Category = *p.Category
	}
	if p.Capacity != nil {
		ws.Capacity = *p.Capacity
	}
	if p.Active != nil {
		ws.Active = *p.Active
	}
	if p.SetInstructor {
		ws.InstructorID = nil
		if p.InstructorID != nil {
			v := *p.InstructorID
			ws.InstructorID = &v
		}
	}
	ws.UpdatedAt = s.now()
	return cloneWorkshop(ws), nil
}

func (w *Workshops) Seats(_ context.Context, id string) (model.SeatSummary, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return model.SeatSummary{}, err
	}
	ws, ok := s.workshops[id]
	if !ok {
		return model.SeatSummary{}, repository.ErrNotFound
	}
	return model.NewSeatSummary(id, ws.Capacity, s.countActive(id), ws.Active), nil
}

// Enrollments implements service.EnrollmentStore.
type Enrollments struct{ s *Store }

func (e *Enrollments) HasActive(_ context.Context, studentID string) (bool, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return false, err
	}
	return s.hasActive(studentID), nil
}

// Enroll re-checks both invariants and inserts under the store lock,
// mirroring the locked transaction of repository.EnrollmentRepository.
func (e *Enrollments) Enroll(_ context.Context, studentID, workshopID, comment string) (*model.Enrollment, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	if _, ok := s.profiles[studentID]; !ok {
		return nil, repository.ErrNotFound
	}
	if s.hasActive(studentID) {
		return nil, repository.ErrAlreadyEnrolled
	}
	ws, ok := s.workshops[workshopID]
	if !ok || !ws.Active {
		return nil, repository.ErrWorkshopNotFound
	}
	if s.countActive(workshopID) >= ws.Capacity {
		return nil, repository.ErrWorkshopFull
	}
	now := s.now()
	row := &model.Enrollment{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		WorkshopID: workshopID,
		State:      model.StateActive,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.enrollments[row.ID] = row
	cp := *row
	return &cp, nil
}

func (e *Enrollments) Cancel(_ context.Context, id, reason string) (*model.Enrollment, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	row, ok := s.enrollments[id]
	if !ok || row.State != model.StateActive {
		return nil, repository.ErrNotFound
	}
	row.State = model.StateCancelled
	switch {
	case reason == "":
	case row.Comment == "":
		row.Comment = reason
	default:
		row.Comment += "\n" + reason
	}
	row.UpdatedAt = s.now()
	cp := *row
	return &cp, nil
}

func (e *Enrollments) GetByID(_ context.Context, id string) (*model.Enrollment, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	row, ok := s.enrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (e *Enrollments) List(_ context.Context, f model.EnrollmentFilter) ([]model.EnrollmentDetail, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	search := strings.ToLower(f.Search)
	var out []model.EnrollmentDetail
	for _, row := range s.enrollments {
		if f.StudentID != "" && row.StudentID != f.StudentID {
			continue
		}
		if f.WorkshopID != "" && row.WorkshopID != f.WorkshopID {
			continue
		}
		if f.State != "" && row.State != f.State {
			continue
		}
		p := s.profiles[row.StudentID]
		if search != "" && !(strings.Contains(strings.ToLower(p.FirstName), search) ||
			strings.Contains(strings.ToLower(p.LastName), search) ||
			strings.Contains(strings.ToLower(p.ControlNumber), search)) {
			continue
		}
		out = append(out, model.EnrollmentDetail{
			Enrollment:       *row,
			StudentFirstName: p.FirstName,
			StudentLastName:  p.LastName,
			ControlNumber:    p.ControlNumber,
			WorkshopName:     s.workshops[row.WorkshopID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Limit, f.Offset), nil
}

// Accounts implements service.AccountStore.
type Accounts struct{ s *Store }

func (a *Accounts) CreateUser(_ context.Context, u *model.User) error {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return err
	}
	return s.insertUser(u)
}

func (s *Store) insertUser(u *model.User) error {
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repoDuplicate("email")
		}
	}
	u.ID = uuid.New().String()
	u.CreatedAt = s.now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (a *Accounts) CreateStudent(_ context.Context, u *model.User, p *model.StudentProfile) error {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return err
	}
	for _, existing := range s.profiles {
		if existing.ControlNumber == p.ControlNumber {
			return repoDuplicate("control number")
		}
	}
	if err := s.insertUser(u); err != nil {
		return err
	}
	p.ID = uuid.New().String()
	p.UserID = u.ID
	p.CreatedAt = u.CreatedAt
	s.profiles[p.ID] = cloneProfile(p)
	return nil
}

func (a *Accounts) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (a *Accounts) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (a *Accounts) GetProfileByUserID(_ context.Context, userID string) (*model.StudentProfile, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	for _, p := range s.profiles {
		if p.UserID == userID {
			return cloneProfile(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (a *Accounts) GetProfileByID(_ context.Context, id string) (*model.StudentProfile, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkError(); err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProfile(p), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func repoDuplicate(field string) error {
	return fmt.Errorf("%s %w", field, repository.ErrDuplicate)
}
