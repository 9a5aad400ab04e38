package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/duetlabs/duet/internal/economy"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func isEconomyErr(err error) bool {
	return errors.Is(err, economy.ErrValidation) ||
		errors.Is(err, economy.ErrUnauthorized) ||
		errors.Is(err, economy.ErrInvariant)
}

// writeEconomyError maps the state machine's error taxonomy onto HTTP status
// codes: validation 400, authorization 403, invariant violation 409.
func writeEconomyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, economy.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, economy.ErrInvariant):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
