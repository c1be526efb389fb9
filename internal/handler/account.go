package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	resp, err := h.accounts.RegisterStudent(r.Context(), req)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	token, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: token})
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	resp, err := h.accounts.Me(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateUser handles POST /users
// Admins create instructor and admin accounts.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	u, err := h.accounts.CreateUser(r.Context(), IdentityFrom(r.Context()), req)
	if err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}
