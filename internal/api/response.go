package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"
	"github.com/teresa-solution/email-tracking-service/internal/monitoring"
)

// ErrorResponse is the error envelope for every JSON error
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes data with the given status. Encoding failures are only
// logged since the header is already out.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, ErrorResponse{Error: message})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusBadRequest, message)
}

func notFound(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r, http.StatusNotFound, message)
}

// internalError logs and alerts on err and answers with a generic 500
func internalError(w http.ResponseWriter, r *http.Request, route string, err error) {
	hlog.FromRequest(r).Error().Err(err).Str("route", route).Msg("Request failed")
	monitoring.Alert("storage fault", err, map[string]string{"route": route})
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}
