package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/mrtutor/internal/grader"
	"github.com/pavelanni/mrtutor/internal/model"
	"github.com/pavelanni/mrtutor/internal/simulate"
	"github.com/pavelanni/mrtutor/internal/store"
)

type testServer struct {
	store  *store.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for _, u := range []struct {
		name   string
		role   model.UserRole
		active bool
	}{
		{"teacher", model.UserRoleTeacher, true},
		{"retired", model.UserRoleTeacher, false},
		{"guest", model.UserRole("guest"), true},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
		require.NoError(t, err)
		_, err = s.CreateUser(context.Background(), model.User{
			Username: u.name, PasswordHash: string(hash), Role: u.role, Active: u.active,
		})
		require.NoError(t, err)
	}

	return &testServer{
		store:  s,
		router: NewRouter(New(s, grader.New()), "en", []string{"https://lab.example.edu"}),
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body []byte, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if user != "" {
		req.SetBasicAuth(user, "secret")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

// idealLog returns a complete session log of a perfect try.
func idealLog(t *testing.T) []byte {
	t.Helper()
	p, err := simulate.Load("ideal")
	require.NoError(t, err)
	res, err := simulate.Run(context.Background(), p, simulate.Options{
		Seed:  9,
		Start: time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	s, _ := res.Last()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return data
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAttempt(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/learners/learner-42/attempts", idealLog(t), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AttemptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AttemptID)
	assert.Equal(t, 100, resp.Points)
	assert.Equal(t, 100, resp.MaxPoints)
	require.NotNil(t, resp.Feedback)
	assert.Equal(t, 100, resp.Feedback.Points())

	a, err := ts.store.GetAttempt(context.Background(), resp.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, "learner-42", a.LearnerID)

	var stored model.Session
	require.NoError(t, json.Unmarshal(a.Session, &stored))
	assert.Equal(t, "learner-42", stored.LearnerID)
}

// scalarAnswers rewrites the one-element answer and unit arrays of a
// session log as plain strings.
func scalarAnswers(t *testing.T, data []byte) []byte {
	t.Helper()
	var sess map[string]any
	require.NoError(t, json.Unmarshal(data, &sess))
	sec := sess["sections"].([]any)[0].(map[string]any)
	for _, q := range sec["questions"].([]any) {
		q := q.(map[string]any)
		for _, key := range []string{"answer", "unit"} {
			if v, ok := q[key].([]any); ok && len(v) == 1 {
				q[key] = v[0]
			}
		}
	}
	out, err := json.Marshal(sess)
	require.NoError(t, err)
	return out
}

func TestCreateAttemptAcceptsLogShapes(t *testing.T) {
	ts := newTestServer(t)
	s := idealLog(t)
	tests := []struct {
		name string
		body []byte
	}{
		{"session", s},
		{"whole log", []byte(`{"sessions": [` + string(s) + `]}`)},
		{"array", []byte(`[` + string(s) + `]`)},
		{"scalar answers", scalarAnswers(t, s)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/learners/learner-7/attempts", tt.body, "")
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			var resp AttemptResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, 100, resp.Points)
		})
	}

	rec := ts.do(t, http.MethodPost, "/api/learners/learner-7/attempts", []byte(`[`+string(s)+`,`+string(s)+`]`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exactly one try")
}

func TestCreateAttemptRejectsBadLogs(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", "{sections", "could not be read"},
		{"empty log", `{"sessions": []}`, "could not be read"},
		{"no sections", `{"sections": []}`, "incomplete"},
		{"five questions missing", `{"sections": [{"questions": [], "resistor_num_bands": 4, "nominal_resistance": 1000, "tolerance": 0.05}]}`, "incomplete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/learners/x/attempts", []byte(tt.body), "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
	n, err := ts.store.AttemptCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdminRequiresCredentials(t *testing.T) {
	ts := newTestServer(t)
	paths := []string{"/api/learners/learner-42/attempts", "/api/attempts/abc", "/api/export"}
	for _, path := range paths {
		rec := ts.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	}

	// Wrong password.
	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	req.SetBasicAuth("teacher", "guess")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/export", nil, "retired").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/export", nil, "nobody").Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/export", nil, "guest").Code)
}

func TestAdminReads(t *testing.T) {
	ts := newTestServer(t)
	created := ts.do(t, http.MethodPost, "/api/learners/learner-42/attempts", idealLog(t), "")
	require.Equal(t, http.StatusCreated, created.Code)
	var resp AttemptResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	rec := ts.do(t, http.MethodGet, "/api/learners/learner-42/attempts", nil, "teacher")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, resp.AttemptID, list[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/learners/someone-else/attempts", nil, "teacher")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/attempts/"+resp.AttemptID, nil, "teacher")
	require.Equal(t, http.StatusOK, rec.Code)
	var a model.Attempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, 100, a.Points)
	assert.NotEmpty(t, a.Feedback)

	rec = ts.do(t, http.MethodGet, "/api/attempts/missing", nil, "teacher")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/export", nil, "teacher")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;"))
	var exp model.AttemptExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))
	assert.Equal(t, 1, exp.NumAttempts)
	assert.Len(t, exp.Results[0].Items, 12)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/learners/x/attempts", nil)
	req.Header.Set("Origin", "https://lab.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, "https://lab.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/learners/x/attempts", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithoutOriginsDropsCredentials(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	router := NewRouter(New(s, grader.New()), "en", nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/export", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
