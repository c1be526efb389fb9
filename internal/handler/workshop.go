package handler

import (
	"net/http"
	"strconv"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
)

// ListWorkshops handles GET /workshops
// Supports ?category=&active=&limit=&offset=.
func (h *Handler) ListWorkshops(w http.ResponseWriter, r *http.Request) {
	f := model.WorkshopFilter{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(w, r, "list workshops", &service.ValidationError{Field: "active", Message: "must be a boolean"})
			return
		}
		f.Active = &active
	}
	var err error
	if f.Limit, f.Offset, err = page(r); err != nil {
		h.fail(w, r, "list workshops", err)
		return
	}

	workshops, err := h.workshops.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, "list workshops", err)
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if workshops == nil {
		workshops = []model.Workshop{}
	}
	writeJSON(w, http.StatusOK, workshops)
}

// CreateWorkshop handles POST /workshops
func (h *Handler) CreateWorkshop(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWorkshopRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	ws, err := h.workshops.Create(r.Context(), IdentityFrom(r.Context()), req)
	if err != nil {
		h.fail(w, r, "create workshop", err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

// GetWorkshop handles GET /workshops/{id}
func (h *Handler) GetWorkshop(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workshops.Get(r.Context(), urlID(r))
	if err != nil {
		h.fail(w, r, "get workshop", err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// UpdateWorkshop handles PATCH /workshops/{id}
func (h *Handler) UpdateWorkshop(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateWorkshopRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	ws, err := h.workshops.Update(r.Context(), IdentityFrom(r.Context()), urlID(r), req)
	if err != nil {
		h.fail(w, r, "update workshop", err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// Seats handles GET /workshops/{id}/seats
func (h *Handler) Seats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.enrollments.Seats(r.Context(), urlID(r))
	if err != nil {
		h.fail(w, r, "seats", err)
		return
	}
	writeJSON(w, http.StatusOK, seats)
}
