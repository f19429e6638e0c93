package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"bloombook/internal/core"
	"bloombook/internal/filter"
	"bloombook/internal/ledger"
	applog "bloombook/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed encoding response", applog.FieldError, err)
	}
}

// writeError maps domain errors onto the HTTP status space: validation
// failures are 422, restricted-mode refusals 403, missing records 404,
// conflicting writes 409. Anything unrecognized is a 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrRestricted):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrAlreadySettled), errors.Is(err, ledger.ErrDuplicateID):
		status = http.StatusConflict
	case isValidationError(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", applog.FieldError, err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func isValidationError(err error) bool {
	for _, v := range []error{
		core.ErrInvalidAmount,
		core.ErrEmptyDescription,
		core.ErrDescriptionTooLong,
		core.ErrEmptyClientName,
		core.ErrInvalidType,
		core.ErrInvalidMethod,
		core.ErrInvalidStatus,
		core.ErrEmptyID,
		core.ErrZeroDate,
		core.ErrInvalidDate,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// parseFilter builds the transaction filter from query parameters:
// account, q, type, from, to. Dates are YYYY-MM-DD in local time;
// unparseable values impose no constraint.
func parseFilter(r *http.Request) filter.Filter {
	q := r.URL.Query()
	f := filter.Filter{
		Query: q.Get("q"),
		Type:  strings.TrimSpace(q.Get("type")),
	}
	switch strings.ToUpper(strings.TrimSpace(q.Get("account"))) {
	case string(core.Cash):
		f.Account = core.Cash
	case string(core.Bank):
		f.Account = core.Bank
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if ts, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			f.From = ts
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if ts, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			f.To = ts
		}
	}
	return f
}
