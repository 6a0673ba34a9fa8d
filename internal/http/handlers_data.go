package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"budgetcal/internal/core"
	"budgetcal/internal/storage"
)

const maxImportSize = 10 << 20 // 10 MiB

type categoriesView struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Engine().Categories()
	writeJSON(w, http.StatusOK, categoriesView{
		Expense: reg.Group(core.Expense),
		Income:  reg.Group(core.Income),
	})
}

type categoryPayload struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind, err := core.NormalizeKind(payload.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	label := core.NormalizeLabel(payload.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, "category label cannot be empty")
		return
	}

	added, err := s.service.AddCategory(r.Context(), kind, label)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to add category", "error", err, "category", label)
		writeError(w, http.StatusInternalServerError, "failed to add category")
		return
	}
	if !added {
		// Already present (case-insensitive) or over the length cap.
		writeJSON(w, http.StatusOK, map[string]bool{"added": false})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"added": true})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind, err := core.NormalizeKind(query.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kind")
		return
	}

	label := core.NormalizeLabel(query.Get("label"))
	if label == "" {
		writeError(w, http.StatusBadRequest, "category label cannot be empty")
		return
	}

	removed, err := s.service.RemoveCategory(r.Context(), kind, label)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to remove category", "error", err, "category", label)
		writeError(w, http.StatusInternalServerError, "failed to remove category")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, err := s.service.Export(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to export snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export snapshot")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="budget-export.json"`)
	writeRawJSON(w, http.StatusOK, body)
}

type importResultView struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	stats, err := s.service.Import(r.Context(), body)
	if err != nil {
		if errors.Is(err, storage.ErrNoTransactions) {
			writeError(w, http.StatusBadRequest, "no valid transactions in import file")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, importResultView{
		Imported: stats.Imported,
		Skipped:  stats.Skipped,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Reset(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Failed to reset dataset", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
