package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	applog "bloombook/internal/log"
	"bloombook/internal/report"
)

// handlePrintReport renders a printable HTML table for one report kind:
// income, expense or bank.
func (s *Server) handlePrintReport(w http.ResponseWriter, r *http.Request) {
	kind := report.ReportKind(chi.URLParam(r, "kind"))

	table, err := report.BuildPrintTable(s.ledger.Transactions(), kind)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		report.PrintTable
		GeneratedAt time.Time
	}{PrintTable: table, GeneratedAt: time.Now()}
	if err := s.templates.ExecuteTemplate(w, "print.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Print report render failed", applog.FieldError, err)
	}
}
