package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/model"
	"github.com/pavelanni/mrtutor/internal/store"
)

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")
	attempts, err := h.store.ListAttempts(r.Context(), learnerID)
	if err != nil {
		slog.Error("failed to list attempts", "learner", learnerID, "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "api_internal"))
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "attemptID")
	a, err := h.store.GetAttempt(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "api_attempt_not_found"))
		return
	}
	if err != nil {
		slog.Error("failed to get attempt", "attempt", id, "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "api_internal"))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.ExportAll(r.Context())
	if err != nil {
		slog.Error("failed to export attempts", "error", err)
		writeError(w, http.StatusInternalServerError, i18n.T(r.Context(), "api_internal"))
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="mrtutor-%s.json"`, export.ExportedAt.Format("20060102-150405")))
	writeJSON(w, http.StatusOK, export)
	slog.Info("exported attempts", "count", export.NumAttempts, "user", model.UserFromContext(r.Context()).Username)
}
