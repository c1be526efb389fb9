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

// AccountService handles registration, login and staff account creation.
type AccountService struct {
	accounts AccountStore
	tokens   TokenIssuer
}

// NewAccountService constructs an AccountService.
func NewAccountService(accounts AccountStore, tokens TokenIssuer) *AccountService {
	return &AccountService{accounts: accounts, tokens: tokens}
}

// RegisterStudent creates a student account with its profile and returns a
// token for the new identity.
func (s *AccountService) RegisterStudent(ctx context.Context, req model.RegisterStudentRequest) (*model.AccountResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.ControlNumber = strings.ToUpper(strings.TrimSpace(req.ControlNumber))
	req.Group = strings.TrimSpace(req.Group)
	if req.Semester == 0 {
		req.Semester = 1
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{Email: req.Email, PasswordHash: hash, Role: model.RoleStudent}
	p := &model.StudentProfile{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		ControlNumber: req.ControlNumber,
		Group:         req.Group,
		Semester:      req.Semester,
	}
	if err := s.accounts.CreateStudent(ctx, u, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("register student: %w", err)
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: u.ID, Role: u.Role, ProfileID: p.ID})
	if err != nil {
		return nil, err
	}
	return &model.AccountResponse{Token: token, User: u, Profile: p}, nil
}

// Login exchanges credentials for a bearer token.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return "", err
	}

	u, err := s.accounts.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", auth.ErrInvalidCredentials
		}
		return "", fmt.Errorf("login: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return "", err
	}

	id := auth.Identity{UserID: u.ID, Role: u.Role}
	if u.Role == model.RoleStudent {
		p, err := s.accounts.GetProfileByUserID(ctx, u.ID)
		switch {
		case err == nil:
			id.ProfileID = p.ID
		case !errors.Is(err, repository.ErrNotFound):
			return "", fmt.Errorf("login: %w", err)
		}
	}
	return s.tokens.Issue(id)
}

// Me returns the caller's account and, for students, their profile.
func (s *AccountService) Me(ctx context.Context, caller auth.Identity) (*model.AccountResponse, error) {
	if err := auth.Require(caller); err != nil {
		return nil, err
	}
	u, err := s.accounts.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	resp := &model.AccountResponse{User: u}
	if caller.ProfileID != "" {
		p, err := s.accounts.GetProfileByID(ctx, caller.ProfileID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get profile: %w", err)
		}
		resp.Profile = p
	}
	return resp, nil
}

// CreateUser lets an admin create instructor or admin accounts.
func (s *AccountService) CreateUser(ctx context.Context, caller auth.Identity, req model.CreateUserRequest) (*model.User, error) {
	if err := auth.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.createStaff(ctx, req)
}

// BootstrapAdmin creates an admin account without a calling identity. It is
// meant for one-shot provisioning tools, never for the HTTP surface.
func (s *AccountService) BootstrapAdmin(ctx context.Context, email, password string) (*model.User, error) {
	return s.createStaff(ctx, model.CreateUserRequest{Email: email, Password: password, Role: model.RoleAdmin})
}

func (s *AccountService) createStaff(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{Email: req.Email, PasswordHash: hash, Role: req.Role}
	if err := s.accounts.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
