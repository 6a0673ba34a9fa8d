package http

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"budgetcal/internal/core"
)

type balanceView struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

type categoryAmountView struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type monthReportView struct {
	Year      int                  `json:"year"`
	Month     int                  `json:"month"`
	Income    float64              `json:"income"`
	Expenses  float64              `json:"expenses"`
	Net       float64              `json:"net"`
	Breakdown []categoryAmountView `json:"breakdown"`
}

type daySummaryView struct {
	Date     string  `json:"date"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}

type rangeReportView struct {
	Start     string               `json:"start"`
	End       string               `json:"end"`
	Days      []daySummaryView     `json:"days"`
	Breakdown []categoryAmountView `json:"breakdown"`
}

type projectionView struct {
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

func breakdownViews(amounts []core.CategoryAmount) []categoryAmountView {
	views := make([]categoryAmountView, 0, len(amounts))
	for _, a := range amounts {
		views = append(views, categoryAmountView{Name: a.Name, Amount: a.Amount.Float64()})
	}
	return views
}

func projectionViews(balances []core.ProjectedBalance) []projectionView {
	views := make([]projectionView, 0, len(balances))
	for _, p := range balances {
		views = append(views, projectionView{Date: p.Date.Key(), Balance: p.Balance.Float64()})
	}
	return views
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query(), "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	s.cachedReport(w, r, func() (any, error) {
		balance := s.service.Engine().BalanceOn(date)
		return balanceView{Date: date.Key(), Balance: balance.Float64()}, nil
	})
}

type setBalancePayload struct {
	StartingBalance      float64 `json:"startingBalance"`
	BalanceEffectiveDate string  `json:"balanceEffectiveDate"`
}

func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	var payload setBalancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	effective := core.Midnight(time.Now())
	if payload.BalanceEffectiveDate != "" {
		parsed, err := core.ParseDate(payload.BalanceEffectiveDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid balanceEffectiveDate")
			return
		}
		effective = parsed
	}

	amount := core.Money{Cents: int64(math.Round(payload.StartingBalance * 100))}
	if err := s.service.SetStartingBalance(r.Context(), amount, effective); err != nil {
		slog.ErrorContext(r.Context(), "Failed to set starting balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set starting balance")
		return
	}

	writeJSON(w, http.StatusOK, setBalancePayload{
		StartingBalance:      amount.Float64(),
		BalanceEffectiveDate: effective.Key(),
	})
}

func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query())
	if params.Month < 1 || params.Month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	s.cachedReport(w, r, func() (any, error) {
		eng := s.service.Engine()
		totals := eng.MonthTotals(params.Year, params.Month)
		breakdown := eng.MonthExpenseBreakdown(params.Year, params.Month)
		return monthReportView{
			Year:      totals.Year,
			Month:     totals.Month,
			Income:    totals.Income.Float64(),
			Expenses:  totals.Expenses.Float64(),
			Net:       totals.Net.Float64(),
			Breakdown: breakdownViews(breakdown),
		}, nil
	})
}

func (s *Server) handleRangeReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := parseDateParam(query, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start date")
		return
	}
	end, err := parseDateParam(query, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}
	if end.BeforeDate(start) {
		writeError(w, http.StatusBadRequest, "end date before start date")
		return
	}

	s.cachedReport(w, r, func() (any, error) {
		eng := s.service.Engine()
		summaries := eng.RangeDailySummaries(start, end)
		days := make([]daySummaryView, 0, len(summaries))
		for _, d := range summaries {
			days = append(days, daySummaryView{
				Date:     d.Date.Key(),
				Income:   d.Income.Float64(),
				Expenses: d.Expenses.Float64(),
				Balance:  d.Balance.Float64(),
			})
		}
		return rangeReportView{
			Start:     start.Key(),
			End:       end.Key(),
			Days:      days,
			Breakdown: breakdownViews(eng.RangeExpenseBreakdown(start, end)),
		}, nil
	})
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	months := parseCountParam(r.URL.Query(), "months", s.projectionMonths, 120)

	s.cachedReport(w, r, func() (any, error) {
		from := core.Midnight(time.Now())
		return projectionViews(s.service.Engine().ProjectedMonthEndBalances(from, months)), nil
	})
}

func (s *Server) handleWeeklyProjections(w http.ResponseWriter, r *http.Request) {
	weeks := parseCountParam(r.URL.Query(), "weeks", 8, 52)

	s.cachedReport(w, r, func() (any, error) {
		from := core.Midnight(time.Now())
		return projectionViews(s.service.Engine().WeeklyProjections(from, weeks)), nil
	})
}
