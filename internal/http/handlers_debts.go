package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bloombook/internal/core"
	"bloombook/internal/filter"
	"bloombook/internal/ledger"
	applog "bloombook/internal/log"
)

type createDebtRequest struct {
	ClientName  string `json:"clientName"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Notes       string `json:"notes,omitempty"`
}

type settleDebtRequest struct {
	Method string `json:"paymentMethod"`
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts := s.ledger.Debts()
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		needle := strings.ToLower(filter.NormalizeDigits(q))
		matched := make([]core.Debt, 0, len(debts))
		for _, d := range debts {
			name := strings.ToLower(filter.NormalizeDigits(d.ClientName))
			desc := strings.ToLower(filter.NormalizeDigits(d.Description))
			if strings.Contains(name, needle) || strings.Contains(desc, needle) {
				matched = append(matched, d)
			}
		}
		debts = matched
	}
	s.writeJSON(w, http.StatusOK, debts)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req createDebtRequest
	if err := readJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	amount, err := core.ParseAmount(filter.NormalizeDigits(req.Amount))
	if err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.ledger.AddDebt(r.Context(), core.Debt{
		ClientName:  req.ClientName,
		Description: req.Description,
		Amount:      amount,
		Notes:       req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "Debt created",
		applog.FieldDebtID, created.ID,
		applog.FieldClientName, created.ClientName,
		applog.FieldAmount, created.Amount.String())
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeleteDebt(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Debt deleted", applog.FieldDebtID, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleSettleDebt flips a debt to PAID and returns the income transaction
// recorded for the payment.
func (s *Server) handleSettleDebt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req settleDebtRequest
	if err := readJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	tx, err := s.ledger.SettleDebt(r.Context(), id, core.PaymentMethod(req.Method))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.countMutation(ledger.OpDebtSettled)
	s.logger.InfoContext(r.Context(), "Debt settled",
		applog.FieldDebtID, id,
		applog.FieldTransactionID, tx.ID,
		applog.FieldPayMethod, string(tx.Method))
	s.writeJSON(w, http.StatusOK, tx)
}
