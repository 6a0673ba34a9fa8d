package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"budgetcal/internal/core"
	"budgetcal/internal/engine"
	"budgetcal/internal/services"
	"budgetcal/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "budget.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	svc := services.NewBudgetService(engine.New(), store, nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	s := NewServer(":0", svc, Options{CacheTTL: time.Minute})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func amt(v float64) amountField {
	return amountField{Money: core.FromFloat(v)}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, rec.Code)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type:        "expense",
		Amount:      amt(42.50),
		Description: "internet",
		Date:        "2025-03-05",
		Frequency:   "monthly",
		Category:    "Utilities",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d (%s), want 201", rec.Code, rec.Body.String())
	}
	created := decodeBody[transactionView](t, rec)
	if created.ID == "" {
		t.Fatal("created transaction should carry an ID")
	}
	if created.Amount != 42.50 || created.Type != "expense" {
		t.Errorf("created = %+v", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d, want 200", rec.Code)
	}
	if list := decodeBody[[]transactionView](t, rec); len(list) != 1 {
		t.Errorf("list = %d entries, want 1", len(list))
	}

	rec = doJSON(t, s, http.MethodPut, "/api/transactions/"+created.ID, transactionPayload{
		Type:      "expense",
		Amount:    amt(45),
		Date:      "2025-03-05",
		Frequency: "monthly",
		Category:  "Utilities",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d (%s), want 200", rec.Code, rec.Body.String())
	}
	if updated := decodeBody[transactionView](t, rec); updated.Amount != 45 {
		t.Errorf("updated amount = %v, want 45", updated.Amount)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPut, "/api/transactions/nope", transactionPayload{
		Type: "expense", Amount: amt(1), Date: "2025-03-05", Frequency: "once",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("update of unknown id = %d, want 404", rec.Code)
	}
}

func TestCreateTransaction_Invalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		payload transactionPayload
	}{
		{"bad type", transactionPayload{Type: "transfer", Amount: amt(1), Date: "2025-01-01"}},
		{"bad date", transactionPayload{Type: "expense", Amount: amt(1), Date: "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("create = %d, want 400", rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestCreateTransaction_StringAmount(t *testing.T) {
	s := newTestServer(t)

	// Amounts may arrive as decimal strings, comma separator included.
	body := `{"type": "expense", "amount": "12,34", "date": "2025-01-01", "frequency": "once", "category": "Groceries"}`
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d (%s), want 201", rec.Code, rec.Body.String())
	}
	if created := decodeBody[transactionView](t, rec); created.Amount != 12.34 {
		t.Errorf("amount = %v, want 12.34", created.Amount)
	}

	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions",
		bytes.NewBufferString(`{"type": "expense", "amount": "-5", "date": "2025-01-01", "frequency": "once"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative string amount = %d, want 400", rec.Code)
	}
}

func TestBalanceFlow(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/balance", setBalancePayload{
		StartingBalance:      1000,
		BalanceEffectiveDate: "2025-01-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set balance = %d (%s), want 200", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type: "income", Amount: amt(2000), Date: "2025-01-10", Frequency: "monthly", Category: "Salary",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, want 201", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/balance?date=2025-02-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get balance = %d, want 200", rec.Code)
	}
	view := decodeBody[balanceView](t, rec)
	// 1000 starting + two monthly paychecks.
	if view.Balance != 5000 {
		t.Errorf("balance = %v, want 5000", view.Balance)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/balance?date=nonsense", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d, want 400", rec.Code)
	}
}

func TestMonthReport(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type: "income", Amount: amt(3000), Date: "2025-01-10", Frequency: "once", Category: "Salary",
	})
	doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type: "expense", Amount: amt(1200), Date: "2025-01-01", Frequency: "once", Category: "Housing",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/reports/month?year=2025&month=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("month report = %d (%s), want 200", rec.Code, rec.Body.String())
	}
	report := decodeBody[monthReportView](t, rec)
	if report.Income != 3000 || report.Expenses != 1200 || report.Net != 1800 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Breakdown) != 1 || report.Breakdown[0].Name != "Housing" {
		t.Errorf("breakdown = %+v, want Housing only", report.Breakdown)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports/month?year=2025&month=13", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("month 13 = %d, want 400", rec.Code)
	}
}

func TestRangeReport(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type: "expense", Amount: amt(10), Date: "2025-01-02", Frequency: "daily", Category: "Groceries",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/reports/range?start=2025-01-01&end=2025-01-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("range report = %d (%s), want 200", rec.Code, rec.Body.String())
	}
	report := decodeBody[rangeReportView](t, rec)
	if len(report.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(report.Days))
	}
	if report.Days[0].Expenses != 0 || report.Days[1].Expenses != 10 || report.Days[2].Expenses != 10 {
		t.Errorf("daily expenses = %+v", report.Days)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports/range?start=2025-01-03&end=2025-01-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range = %d, want 400", rec.Code)
	}
}

func TestProjections(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/projections?months=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("projections = %d, want 200", rec.Code)
	}
	if views := decodeBody[[]projectionView](t, rec); len(views) != 3 {
		t.Errorf("projections = %d, want 3", len(views))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/projections/weekly?weeks=4", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("weekly projections = %d, want 200", rec.Code)
	}
	if views := decodeBody[[]projectionView](t, rec); len(views) != 4 {
		t.Errorf("weekly projections = %d, want 4", len(views))
	}
}

func TestCategoriesEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories = %d, want 200", rec.Code)
	}
	cats := decodeBody[categoriesView](t, rec)
	if len(cats.Expense) == 0 || len(cats.Income) == 0 {
		t.Fatalf("categories = %+v, want defaults", cats)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/categories", categoryPayload{Kind: "expense", Label: "Travel"})
	if rec.Code != http.StatusCreated {
		t.Errorf("add category = %d, want 201", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/categories", categoryPayload{Kind: "expense", Label: "Travel"})
	if rec.Code != http.StatusOK {
		t.Errorf("duplicate add = %d, want 200", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/categories", categoryPayload{Kind: "stuff", Label: "Travel"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/categories?kind=expense&label=Travel", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("remove category = %d, want 200", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/categories?kind=expense&label=Travel", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("remove missing = %d, want 404", rec.Code)
	}
}

func TestExportImport(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type: "expense", Amount: amt(99), Date: "2025-04-01", Frequency: "once", Category: "Groceries",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got == "" {
		t.Error("export should set Content-Disposition")
	}
	exported := rec.Body.Bytes()

	other := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	other.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d (%s), want 200", rec.Code, rec.Body.String())
	}
	result := decodeBody[importResultView](t, rec)
	if result.Imported != 1 || result.Skipped != 0 {
		t.Errorf("import result = %+v, want 1 imported", result)
	}

	rec = httptest.NewRecorder()
	other.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewBufferString(`{"transactions": []}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty import = %d, want 400", rec.Code)
	}
}

func TestReset(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionPayload{
		Type: "expense", Amount: amt(5), Date: "2025-01-01", Frequency: "once",
	})
	rec := doJSON(t, s, http.MethodPost, "/api/reset", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reset = %d, want 204", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if list := decodeBody[[]transactionView](t, rec); len(list) != 0 {
		t.Errorf("transactions after reset = %d, want 0", len(list))
	}
}

func TestReportCacheInvalidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/balance?date=2025-06-01", nil)
	before := decodeBody[balanceView](t, rec)
	if before.Balance != 0 {
		t.Fatalf("balance = %v, want 0", before.Balance)
	}

	doJSON(t, s, http.MethodPut, "/api/balance", setBalancePayload{
		StartingBalance:      250,
		BalanceEffectiveDate: "2025-01-01",
	})

	// The mutation bumps the engine version, so the cached zero response
	// no longer matches the key.
	rec = doJSON(t, s, http.MethodGet, "/api/balance?date=2025-06-01", nil)
	after := decodeBody[balanceView](t, rec)
	if after.Balance != 250 {
		t.Errorf("balance after update = %v, want 250", after.Balance)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}

func TestRateLimiting(t *testing.T) {
	s := newTestServer(t)

	var limited bool
	for i := 0; i < 70; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/categories", categoryPayload{
			Kind:  "expense",
			Label: fmt.Sprintf("Cat%d", i),
		})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Errorf("Retry-After = %q, want 60", got)
			}
			break
		}
	}
	if !limited {
		t.Error("expected rate limiting to trigger on sustained mutations")
	}

	// Reads are never limited.
	rec := doJSON(t, s, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("read under limit = %d, want 200", rec.Code)
	}
}
