package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budgetcal/internal/core"
	"budgetcal/internal/engine"
	"budgetcal/internal/storage"
)

// amountField accepts a JSON number or a decimal string ("12.34" or
// "12,34", as form clients submit). Strings parse exactly to cents;
// numbers round to the nearest cent.
type amountField struct {
	Money core.Money
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		cents, err := core.ParseDecimalToCents(s)
		if err != nil {
			return err
		}
		a.Money = core.Money{Cents: cents}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	a.Money = core.FromFloat(f)
	return nil
}

func (a amountField) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Money.Float64())
}

// transactionPayload is the wire shape for creating and updating
// transactions, matching the snapshot format.
type transactionPayload struct {
	Type        string      `json:"type"`
	Amount      amountField `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	Frequency   string      `json:"frequency"`
	Category    string      `json:"category"`
}

type transactionView struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Frequency   string  `json:"frequency"`
	Category    string  `json:"category"`
}

func viewFromTransaction(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		Type:        string(t.Kind),
		Amount:      t.Amount.Float64(),
		Description: t.Description,
		Date:        t.StartDate.Key(),
		Frequency:   string(t.Frequency),
		Category:    t.Category,
	}
}

func (p transactionPayload) toTransaction() (core.Transaction, error) {
	kind, err := core.NormalizeKind(p.Type)
	if err != nil {
		return core.Transaction{}, err
	}

	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		Kind:        kind,
		Amount:      p.Amount.Money,
		Description: storage.SanitizeDescription(p.Description),
		StartDate:   date,
		Frequency:   core.NormalizeFrequency(p.Frequency),
		Category:    core.NormalizeLabel(p.Category),
	}
	if t.Category == "" {
		t.Category = core.DefaultCategoryLabel
	}

	return t, t.Validate()
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	// With a date parameter, list only the occurrences on that day.
	if r.URL.Query().Get("date") != "" {
		date, err := parseDateParam(r.URL.Query(), "date")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		s.cachedReport(w, r, func() (any, error) {
			occurring := s.service.Engine().TransactionsOn(date)
			views := make([]transactionView, 0, len(occurring))
			for _, t := range occurring {
				views = append(views, viewFromTransaction(t))
			}
			return views, nil
		})
		return
	}

	all := s.service.Engine().Transactions()
	views := make([]transactionView, 0, len(all))
	for _, t := range all {
		views = append(views, viewFromTransaction(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := payload.toTransaction()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.service.AddTransaction(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create transaction")
		return
	}

	writeJSON(w, http.StatusCreated, viewFromTransaction(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := payload.toTransaction()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.UpdateTransaction(r.Context(), id, t); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to update transaction", "error", err, "transaction_id", id)
		writeError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	t.ID = id
	writeJSON(w, http.StatusOK, viewFromTransaction(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.service.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to delete transaction", "error", err, "transaction_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
