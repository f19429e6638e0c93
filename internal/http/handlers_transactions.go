package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloombook/internal/core"
	"bloombook/internal/filter"
	"bloombook/internal/ledger"
	applog "bloombook/internal/log"
)

// createTransactionRequest carries the amount as text so both decimal
// separators pass through the same parsing rules as every other entry path.
type createTransactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Method      string `json:"paymentMethod"`
	Date        string `json:"date,omitempty"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)
	txns := f.Apply(s.ledger.Transactions())
	s.writeJSON(w, http.StatusOK, txns)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := readJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	amount, err := core.ParseAmount(filter.NormalizeDigits(req.Amount))
	if err != nil {
		s.writeError(w, err)
		return
	}

	tx := core.Transaction{
		Description: req.Description,
		Amount:      amount,
		Type:        core.TransactionType(req.Type),
		Method:      core.PaymentMethod(req.Method),
	}
	if req.Date != "" {
		ts, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %q is not an RFC 3339 timestamp", core.ErrInvalidDate, req.Date))
			return
		}
		tx.Date = ts
	}

	created, err := s.ledger.AddTransaction(r.Context(), tx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.countMutation(ledger.OpTransactionCreated)
	s.logger.InfoContext(r.Context(), "Transaction created",
		applog.FieldTransactionID, created.ID,
		applog.FieldTxType, string(created.Type),
		applog.FieldPayMethod, string(created.Method),
		applog.FieldAmount, created.Amount.String())
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.countMutation(ledger.OpTransactionDeleted)
	s.logger.InfoContext(r.Context(), "Transaction deleted", applog.FieldTransactionID, id)
	w.WriteHeader(http.StatusNoContent)
}
