package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mrtutor/internal/activitylog"
	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/model"
	"github.com/pavelanni/mrtutor/internal/store"
)

const maxLogBytes = 1 << 20

// Grader scores a session log.
type Grader interface {
	Grade(ctx context.Context, s *model.Session) (*feedback.Feedback, error)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	grader Grader
}

// New creates a new Handler.
func New(s *store.Store, g Grader) *Handler {
	return &Handler{store: s, grader: g}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Post("/api/learners/{learnerID}/attempts", h.handleCreateAttempt)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(requireRole(model.UserRoleTeacher, model.UserRoleAdmin))
		r.Get("/api/learners/{learnerID}/attempts", h.handleListAttempts)
		r.Get("/api/attempts/{attemptID}", h.handleGetAttempt)
		r.Get("/api/export", h.handleExport)
	})
}

// AttemptResponse is the reply to a submitted session log.
type AttemptResponse struct {
	AttemptID string             `json:"attempt_id"`
	Points    int                `json:"points"`
	MaxPoints int                `json:"max_points"`
	Feedback  *feedback.Feedback `json:"feedback"`
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learnerID := chi.URLParam(r, "learnerID")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLogBytes))
	var sessions []*model.Session
	if err == nil {
		sessions, err = activitylog.Decode(data)
	}
	if err != nil {
		slog.Warn("unreadable session log", "learner", learnerID, "error", err)
		writeError(w, http.StatusBadRequest, i18n.T(ctx, "api_bad_log"))
		return
	}
	if len(sessions) != 1 {
		slog.Warn("session log holds several tries", "learner", learnerID, "tries", len(sessions))
		writeError(w, http.StatusBadRequest, i18n.T(ctx, "api_one_try"))
		return
	}
	sess := sessions[0]
	sess.LearnerID = learnerID

	fb, err := h.grader.Grade(ctx, sess)
	if errors.Is(err, model.ErrMalformedSession) {
		slog.Warn("malformed session log", "learner", learnerID, "error", err)
		writeError(w, http.StatusBadRequest, i18n.Td(ctx, "api_malformed_log", map[string]any{"Reason": err.Error()}))
		return
	}
	if err != nil {
		slog.Error("failed to grade session", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(ctx, "api_internal"))
		return
	}

	a, err := h.store.SaveAttempt(ctx, learnerID, sess, fb)
	if err != nil {
		slog.Error("failed to save attempt", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(ctx, "api_internal"))
		return
	}
	slog.Info("graded attempt", "attempt", a.ID, "learner", learnerID, "points", a.Points)

	writeJSON(w, http.StatusCreated, AttemptResponse{
		AttemptID: a.ID,
		Points:    a.Points,
		MaxPoints: a.MaxPoints,
		Feedback:  fb,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
