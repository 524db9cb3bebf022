package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/domain/apperr"
	"github.com/tb8/tb8/domain/envelope"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// writeError renders err as a failure envelope with its mapped status.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	e := apperr.From(err)
	status := e.StatusCode()

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("kind", string(e.Kind)).
		Int("status", status).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")

	detail, ok := e.Detail()
	writeJSON(w, status, envelope.NewFailure(e.Message, detail, ok))
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope.NewFailure(message, "", false))
}
