package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/isdelr/uptask-be/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeMessage answers with a bare JSON string.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, message)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

var kindStatus = map[services.Kind]int{
	services.KindInvalid:      http.StatusBadRequest,
	services.KindUnauthorized: http.StatusUnauthorized,
	services.KindForbidden:    http.StatusForbidden,
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusConflict,
}

// writeError maps domain errors to their status. Anything else is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status, ok := kindStatus[services.KindOf(err)]; ok {
		writeErrorMessage(w, status, err.Error())
		return
	}
	hlog.FromRequest(r).Error().Err(err).Str("route", r.URL.Path).Msg("Request failed")
	writeErrorMessage(w, http.StatusInternalServerError, "Hubo un error")
}
