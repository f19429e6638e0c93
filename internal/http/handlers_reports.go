package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"bloombook/internal/core"
	applog "bloombook/internal/log"
	"bloombook/internal/report"
)

type summaryResponse struct {
	Cash        decimal.Decimal `json:"cash"`
	Bank        decimal.Decimal `json:"bank"`
	Total       decimal.Decimal `json:"total"`
	UnpaidDebts decimal.Decimal `json:"unpaidDebts"`
}

type groupedBucket struct {
	Key          string             `json:"key"`
	Label        string             `json:"label"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	balances := report.Balances(s.ledger.Transactions())
	s.writeJSON(w, http.StatusOK, summaryResponse{
		Cash:        balances.Cash,
		Bank:        balances.Bank,
		Total:       balances.Total,
		UnpaidDebts: report.UnpaidDebtTotal(s.ledger.Debts()),
	})
}

// handlePeriodReport serves income/expense totals for "today" or a
// YYYY-MM month.
func (s *Server) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = report.PeriodToday
	}

	totals, err := report.PeriodReport(s.ledger.Transactions(), period, time.Now())
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.logger.InfoContext(r.Context(), "Period report served", applog.FieldPeriod, period)
	s.writeJSON(w, http.StatusOK, totals)
}

// handleGroupedTransactions buckets the (optionally filtered) transactions
// by day or week, newest bucket first, with a human label per bucket.
func (s *Server) handleGroupedTransactions(w http.ResponseWriter, r *http.Request) {
	txns := parseFilter(r).Apply(s.ledger.Transactions())
	now := time.Now()

	var buckets []report.Bucket
	var label func(time.Time, time.Time) string
	switch r.URL.Query().Get("by") {
	case "week":
		buckets = report.GroupByWeek(txns)
		label = report.WeekLabel
	case "", "day":
		buckets = report.GroupByDay(txns)
		label = report.DayLabel
	default:
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: `grouping must be "day" or "week"`})
		return
	}

	out := make([]groupedBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, groupedBucket{
			Key:          b.Key.Format("2006-01-02"),
			Label:        label(b.Key, now),
			Transactions: b.Transactions,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}
