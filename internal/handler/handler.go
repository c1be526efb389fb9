// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/repository"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
)

// Handler holds all HTTP handlers for the workshop enrollment API.
type Handler struct {
	workshops   *service.WorkshopService
	enrollments *service.EnrollmentService
	accounts    *service.AccountService
	log         logrus.FieldLogger
}

// New constructs a Handler.
func New(
	workshops *service.WorkshopService,
	enrollments *service.EnrollmentService,
	accounts *service.AccountService,
	log logrus.FieldLogger,
) *Handler {
	return &Handler{workshops: workshops, enrollments: enrollments, accounts: accounts, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, msg string) {
	writeJSON(w, status, model.ErrorResponse{Reason: reason, Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON accepts an empty body as the zero value of dst.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func badBody(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "validation-error", "invalid request body: "+err.Error())
}

// fail maps a service error to its status and reason. Anything that is not a
// known domain outcome is logged and reported without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation-error", verr.Error())
	case errors.Is(err, repository.ErrAlreadyEnrolled):
		writeError(w, http.StatusBadRequest, model.ReasonAlreadyEnrolled, "student already has an active enrollment")
	case errors.Is(err, repository.ErrWorkshopFull):
		writeError(w, http.StatusBadRequest, "workshop-full", "workshop has no remaining seats")
	case errors.Is(err, repository.ErrCapacityBelowActive):
		writeError(w, http.StatusBadRequest, "capacity-below-active", "capacity is below the number of active enrollments")
	case errors.Is(err, repository.ErrWorkshopNotFound):
		writeError(w, http.StatusNotFound, model.ReasonWorkshopNotFound, "workshop not found or inactive")
	case errors.Is(err, service.ErrNoProfile):
		writeError(w, http.StatusNotFound, "profile-not-found", "student profile not found")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not-found", "resource not found")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid-credentials", "invalid email or password")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "operation not permitted")
	default:
		h.log.WithFields(logrus.Fields{
			"op":         op,
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
			"user_id":    IdentityFrom(r.Context()).UserID,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal-error", "internal server error")
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &service.ValidationError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

func page(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// HealthCheck handles GET /health
func HealthCheck(db Pinger, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				log.WithError(err).Warn("health check: database unreachable")
				writeError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func urlID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
