package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"bloombook/internal/csvio"
	applog "bloombook/internal/log"
)

type importResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", csvio.ExportFilename(time.Now())))

	if err := csvio.Export(w, s.ledger.Transactions()); err != nil {
		// Headers are already out; all we can do is log.
		s.logger.ErrorContext(r.Context(), "CSV export failed", applog.FieldError, err)
	}
}

// handleImportCSV parses an uploaded CSV file and merges its rows into the
// ledger. A structurally broken file rejects the whole upload; bad rows are
// skipped and counted.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return
	}
	defer file.Close()

	result, err := csvio.Import(file)
	if err != nil {
		if errors.Is(err, csvio.ErrEmptyFile) || errors.Is(err, csvio.ErrBadHeader) {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.writeError(w, err)
		return
	}

	imported, err := s.ledger.ImportTransactions(r.Context(), result.Transactions)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Rows with an already-known id count as skipped too.
	skipped := result.Skipped + len(result.Transactions) - imported
	s.metrics.countImport(imported, skipped)
	s.logger.InfoContext(r.Context(), "CSV import finished",
		applog.FieldImported, imported,
		applog.FieldSkipped, skipped)
	s.writeJSON(w, http.StatusOK, importResponse{Imported: imported, Skipped: skipped})
}
