package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
)

// WorkshopService orchestrates workshop administration.
type WorkshopService struct {
	workshops WorkshopStore
	accounts  AccountStore
}

// NewWorkshopService constructs a WorkshopService with its dependencies.
func NewWorkshopService(workshops WorkshopStore, accounts AccountStore) *WorkshopService {
	return &WorkshopService{workshops: workshops, accounts: accounts}
}

// Create validates the request and delegates to the repository. Admin only.
func (s *WorkshopService) Create(ctx context.Context, caller auth.Identity, req model.CreateWorkshopRequest) (*model.Workshop, error) {
	if err := auth.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.InstructorID != nil && *req.InstructorID == "" {
		req.InstructorID = nil
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.InstructorID != nil {
		if err := s.requireInstructor(ctx, *req.InstructorID); err != nil {
			return nil, err
		}
	}

	w, err := s.workshops.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create workshop: %w", err)
	}
	return w, nil
}

// Get returns a single workshop by id.
func (s *WorkshopService) Get(ctx context.Context, id string) (*model.Workshop, error) {
	if err := requireUUID("id", id); err != nil {
		return nil, err
	}
	w, err := s.workshops.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get workshop: %w", err)
	}
	return w, nil
}

// List returns workshops matching the filter.
func (s *WorkshopService) List(ctx context.Context, f model.WorkshopFilter) ([]model.Workshop, error) {
	var err error
	f.Category = strings.TrimSpace(f.Category)
	f.Limit, f.Offset, err = normalizePage(f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	out, err := s.workshops.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	return out, nil
}

// Update applies a partial update. Admin only. Lowering capacity below the
// current active enrollment count fails with repository.ErrCapacityBelowActive.
func (s *WorkshopService) Update(ctx context.Context, caller auth.Identity, id string, req model.UpdateWorkshopRequest) (*model.Workshop, error) {
	if err := auth.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := requireUUID("id", id); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	patch := repository.WorkshopPatch{Capacity: req.Capacity, Active: req.Active}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		patch.Name = &name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, invalid("category", "must not be empty")
		}
		patch.Category = &category
	}
	if req.InstructorID != nil {
		patch.SetInstructor = true
		if *req.InstructorID != "" {
			if err := requireUUID("instructor_id", *req.InstructorID); err != nil {
				return nil, err
			}
			if err := s.requireInstructor(ctx, *req.InstructorID); err != nil {
				return nil, err
			}
			instructor := *req.InstructorID
			patch.InstructorID = &instructor
		}
	}

	w, err := s.workshops.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrCapacityBelowActive) {
			return nil, err
		}
		return nil, fmt.Errorf("update workshop: %w", err)
	}
	return w, nil
}

func (s *WorkshopService) requireInstructor(ctx context.Context, userID string) error {
	u, err := s.accounts.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("instructor_id", "must reference an existing instructor")
		}
		return fmt.Errorf("get instructor: %w", err)
	}
	if u.Role != model.RoleInstructor {
		return invalid("instructor_id", "must reference an existing instructor")
	}
	return nil
}
