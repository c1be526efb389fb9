package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/auth"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/metrics"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/model"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/service"
	"github.com/Shivanand-hulikatti/workshop-enrollment/internal/storetest"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testAPI struct {
	router http.Handler
	store  *storetest.Store
	issuer *auth.Issuer
	logs   *test.Hook
	admin  string
}

func newTestAPI(t *testing.T, opts ...func(*RouterConfig)) *testAPI {
	t.Helper()
	log, hook := test.NewNullLogger()
	store := storetest.New()
	issuer, err := auth.NewIssuer("handler-secret", time.Hour, "test")
	require.NoError(t, err)
	m := metrics.New()

	h := New(
		service.NewWorkshopService(store.Workshops, store.Accounts),
		service.NewEnrollmentService(store.Workshops, store.Enrollments, m, log),
		service.NewAccountService(store.Accounts, issuer),
		log,
	)
	cfg := RouterConfig{
		Tokens:      issuer,
		DB:          fakePinger{},
		Metrics:     m,
		MetricsPage: m.Handler(),
		Log:         log,
	}
	for _, o := range opts {
		o(&cfg)
	}

	adminUser := store.AddUser("admin@school.test", model.RoleAdmin)
	admin, err := issuer.Issue(auth.Identity{UserID: adminUser.ID, Role: model.RoleAdmin})
	require.NoError(t, err)

	return &testAPI{router: NewRouter(h, cfg), store: store, issuer: issuer, logs: hook, admin: admin}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) registerStudent(t *testing.T, control string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":          strings.ToLower(control) + "@school.test",
		"password":       "s3cure-pass",
		"first_name":     "Ana",
		"last_name":      "Lopez",
		"control_number": control,
		"semester":       2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.AccountResponse](t, rec).Token
}

func (a *testAPI) createWorkshop(t *testing.T, name string, capacity int) model.Workshop {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/workshops", a.admin, map[string]any{
		"name": name, "category": "sports", "capacity": capacity,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Workshop](t, rec)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestAPI(t, func(c *RouterConfig) { c.DB = fakePinger{err: errors.New("refused")} })
	rec = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEnrollmentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	student := api.registerStudent(t, "A001")
	ws := api.createWorkshop(t, "Football", 2)

	rec := api.do(t, http.MethodGet, "/workshops/"+ws.ID+"/eligibility", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Eligibility](t, rec).Eligible)

	rec = api.do(t, http.MethodPost, "/workshops/"+ws.ID+"/enrollment", student, map[string]string{"comment": "first"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[model.Enrollment](t, rec)
	assert.Equal(t, model.StateActive, e.State)

	rec = api.do(t, http.MethodPost, "/workshops/"+ws.ID+"/enrollment", student, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "already-enrolled", decode[model.ErrorResponse](t, rec).Reason)

	rec = api.do(t, http.MethodGet, "/workshops/"+ws.ID+"/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.SeatSummary](t, rec).RemainingSeats)

	rec = api.do(t, http.MethodGet, "/students/me/enrollments", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.EnrollmentDetail](t, rec), 1)

	rec = api.do(t, http.MethodDelete, "/enrollments/"+e.ID, student, map[string]string{"reason": "schedule clash"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[model.Enrollment](t, rec)
	assert.Equal(t, model.StateCancelled, cancelled.State)
	assert.Equal(t, "first\nschedule clash", cancelled.Comment)

	rec = api.do(t, http.MethodDelete, "/enrollments/"+e.ID, student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/workshops/"+ws.ID+"/seats", "", nil)
	assert.Equal(t, 2, decode[model.SeatSummary](t, rec).RemainingSeats)
}

func TestEnroll_FullWorkshop(t *testing.T) {
	api := newTestAPI(t)
	first := api.registerStudent(t, "A001")
	second := api.registerStudent(t, "B002")
	ws := api.createWorkshop(t, "Chess", 1)

	rec := api.do(t, http.MethodPost, "/workshops/"+ws.ID+"/enrollment", first, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/workshops/"+ws.ID+"/enrollment", second, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "workshop-full", decode[model.ErrorResponse](t, rec).Reason)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	student := api.registerStudent(t, "A001")
	missing := "7f1b7c2e-2a51-4f5e-9d5c-2b8f9b8c1a11"

	cases := []struct {
		name, method, path, token string
		body                      any
		status                    int
		reason                    string
	}{
		{"anonymous enroll", http.MethodPost, "/workshops/" + missing + "/enrollment", "", nil, http.StatusUnauthorized, "unauthorized"},
		{"bad token", http.MethodGet, "/auth/me", "garbage", nil, http.StatusUnauthorized, "unauthorized"},
		{"student creates workshop", http.MethodPost, "/workshops", student, map[string]any{"name": "X", "category": "x", "capacity": 1}, http.StatusForbidden, "forbidden"},
		{"malformed id", http.MethodGet, "/workshops/not-a-uuid/seats", "", nil, http.StatusBadRequest, "validation-error"},
		{"missing workshop", http.MethodGet, "/workshops/" + missing, "", nil, http.StatusNotFound, "not-found"},
		{"enroll missing workshop", http.MethodPost, "/workshops/" + missing + "/enrollment", student, nil, http.StatusNotFound, "workshop-not-found-or-inactive"},
		{"unknown field", http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.test", "password": "x", "extra": 1}, http.StatusBadRequest, "validation-error"},
		{"bad credentials", http.MethodPost, "/auth/login", "", map[string]any{"email": "a001@school.test", "password": "wrong-pass"}, http.StatusUnauthorized, "invalid-credentials"},
		{"bad limit", http.MethodGet, "/workshops?limit=abc", "", nil, http.StatusBadRequest, "validation-error"},
		{"unknown route", http.MethodGet, "/nope", "", nil, http.StatusNotFound, "not-found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(t, tc.method, tc.path, tc.token, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.reason, decode[model.ErrorResponse](t, rec).Reason)
		})
	}
	for _, e := range api.logs.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level, e.Message)
	}
}

func TestDuplicateRegistrationIsConflict(t *testing.T) {
	api := newTestAPI(t)
	api.registerStudent(t, "A001")

	rec := api.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a001@school.test", "password": "s3cure-pass",
		"first_name": "Ana", "last_name": "Lopez", "control_number": "Z999",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate", decode[model.ErrorResponse](t, rec).Reason)
}

func TestStoreFailureIsInternalAndLogged(t *testing.T) {
	api := newTestAPI(t)
	ws := api.createWorkshop(t, "Music", 3)
	api.store.ErrorOnNextCall = errors.New("connection reset by peer")

	rec := api.do(t, http.MethodGet, "/workshops/"+ws.ID+"/seats", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[model.ErrorResponse](t, rec)
	assert.Equal(t, "internal-error", resp.Reason)
	assert.NotContains(t, resp.Message, "connection reset")

	var logged bool
	for _, e := range api.logs.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			logged = true
			assert.Equal(t, "seats", e.Data["op"])
		}
	}
	assert.True(t, logged)
}

func TestAdminReports(t *testing.T) {
	api := newTestAPI(t)
	student := api.registerStudent(t, "A001")
	ws := api.createWorkshop(t, "Drawing", 5)
	rec := api.do(t, http.MethodPost, "/workshops/"+ws.ID+"/enrollment", student, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/enrollments?q=lop&state=active", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[[]model.EnrollmentDetail](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Drawing", list[0].WorkshopName)

	rec = api.do(t, http.MethodGet, "/workshops/"+ws.ID+"/enrollments", api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.EnrollmentDetail](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/enrollments", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPatchWorkshop(t *testing.T) {
	api := newTestAPI(t)
	ws := api.createWorkshop(t, "Theatre", 5)

	rec := api.do(t, http.MethodPatch, "/workshops/"+ws.ID, api.admin, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[model.Workshop](t, rec).Active)

	rec = api.do(t, http.MethodGet, "/workshops?active=false", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Workshop](t, rec), 1)
}

func TestCreateStaffUser(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/users", api.admin, map[string]any{
		"email": "coach@school.test", "password": "coach-pass", "role": "instructor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "coach@school.test", "password": "coach-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[model.TokenResponse](t, rec).Token)
}

func TestAuthRateLimit(t *testing.T) {
	api := newTestAPI(t, func(c *RouterConfig) {
		c.AuthLimiter = NewRateLimiter(0.001, 2, c.Log)
	})
	body := map[string]any{"email": "ghost@school.test", "password": "whatever1"}

	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := api.do(t, http.MethodPost, "/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate-limited", decode[model.ErrorResponse](t, rec).Reason)

	rec = api.do(t, http.MethodGet, "/workshops", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/workshops", "", nil)

	rec := api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/workshops`)
}
