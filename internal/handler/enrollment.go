package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
)

// Eligibility handles GET /workshops/{id}/eligibility
// Reports whether the calling student could enroll right now.
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.enrollments.EligibilityFor(r.Context(), IdentityFrom(r.Context()), urlID(r))
	if err != nil {
		h.fail(w, r, "eligibility", err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

// Enroll handles POST /workshops/{id}/enrollment
// The body is optional and may carry a comment.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req model.EnrollRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	e, err := h.enrollments.Enroll(r.Context(), IdentityFrom(r.Context()), urlID(r), req)
	if err != nil {
		h.fail(w, r, "enroll", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// CancelEnrollment handles DELETE /enrollments/{id}
func (h *Handler) CancelEnrollment(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	e, err := h.enrollments.Cancel(r.Context(), IdentityFrom(r.Context()), urlID(r), req)
	if err != nil {
		h.fail(w, r, "cancel enrollment", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ListEnrollments handles GET /enrollments
// Supports ?student_id=&workshop_id=&q=&state=&limit=&offset=.
func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	f, err := enrollmentFilter(r)
	if err != nil {
		h.fail(w, r, "list enrollments", err)
		return
	}

	out, err := h.enrollments.ListEnrollments(r.Context(), IdentityFrom(r.Context()), f)
	if err != nil {
		h.fail(w, r, "list enrollments", err)
		return
	}
	writeDetails(w, out)
}

// WorkshopEnrollments handles GET /workshops/{id}/enrollments
func (h *Handler) WorkshopEnrollments(w http.ResponseWriter, r *http.Request) {
	f, err := enrollmentFilter(r)
	if err != nil {
		h.fail(w, r, "workshop enrollments", err)
		return
	}

	out, err := h.enrollments.WorkshopEnrollments(r.Context(), IdentityFrom(r.Context()), urlID(r), f)
	if err != nil {
		h.fail(w, r, "workshop enrollments", err)
		return
	}
	writeDetails(w, out)
}

// MyEnrollments handles GET /students/me/enrollments
func (h *Handler) MyEnrollments(w http.ResponseWriter, r *http.Request) {
	out, err := h.enrollments.MyEnrollments(r.Context(), IdentityFrom(r.Context()))
	if err != nil {
		h.fail(w, r, "my enrollments", err)
		return
	}
	writeDetails(w, out)
}

func enrollmentFilter(r *http.Request) (model.EnrollmentFilter, error) {
	q := r.URL.Query()
	f := model.EnrollmentFilter{
		StudentID:  q.Get("student_id"),
		WorkshopID: q.Get("workshop_id"),
		Search:     q.Get("q"),
		State:      model.EnrollmentState(q.Get("state")),
	}
	var err error
	f.Limit, f.Offset, err = page(r)
	return f, err
}

func writeDetails(w http.ResponseWriter, out []model.EnrollmentDetail) {
	if out == nil {
		out = []model.EnrollmentDetail{}
	}
	writeJSON(w, http.StatusOK, out)
}
