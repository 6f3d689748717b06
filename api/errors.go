package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/tally"
	"github.com/xraph/tally/types"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps ledger errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, tally.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, tally.ErrInvalidRecipient):
		return http.StatusBadRequest, "invalid_recipient"
	case errors.Is(err, tally.ErrInvalidSender):
		return http.StatusBadRequest, "invalid_sender"
	case errors.Is(err, tally.ErrOverflow):
		return http.StatusBadRequest, "overflow"
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidAddress),
		errors.Is(err, tally.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case tally.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, tally.ErrLedgerClosed):
		return http.StatusServiceUnavailable, "closed"
	case errors.Is(err, tally.ErrStorageFailure):
		return http.StatusServiceUnavailable, "storage_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}
