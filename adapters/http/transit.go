package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/app"
	"github.com/tb8/tb8/domain/apperr"
	"github.com/tb8/tb8/domain/envelope"
	"github.com/tb8/tb8/ports"
)

// DefaultLinesQuery is echoed by /lines when no query is given.
const DefaultLinesQuery = "SELECT * FROM self;"

// Banner is the body of GET /.
var Banner = map[string]string{"🚨": "It's time for tb8!"}

// TransitHandler serves the transit API routes.
type TransitHandler struct {
	service *app.TransitService
	clock   ports.Clock
	logger  zerolog.Logger
}

// NewTransitHandler creates the transit route handlers.
func NewTransitHandler(service *app.TransitService, clock ports.Clock, logger zerolog.Logger) *TransitHandler {
	return &TransitHandler{service: service, clock: clock, logger: logger}
}

// Root returns the service banner.
//
//	@Summary	Service banner
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/ [get]
func (h *TransitHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Banner)
}

// Lines lists every line. The optional query parameter is only echoed.
//
//	@Summary	List lines
//	@Tags		Lines
//	@Produce	json
//	@Param		query	query		string	false	"Echoed in context.query"
//	@Success	200		{object}	envelope.Response[transit.Line]
//	@Failure	500		{object}	envelope.Failure
//	@Router		/lines [get]
func (h *TransitHandler) Lines(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	query := r.URL.Query().Get("query")
	if query == "" {
		query = DefaultLinesQuery
	}
	h.received(r, query)

	lines, err := h.service.Lines(r.Context())
	respond(h, w, r, start, query, lines, err)
}

// LineByID returns the line(s) with the given id.
//
//	@Summary	Get line
//	@Tags		Lines
//	@Produce	json
//	@Param		id	path		string	true	"Line id, e.g. victoria"
//	@Success	200	{object}	envelope.Response[transit.Line]
//	@Failure	404	{object}	envelope.Failure
//	@Router		/lines/{id} [get]
func (h *TransitHandler) LineByID(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	id := chi.URLParam(r, "id")
	query := "id=" + id
	h.received(r, query)

	lines, err := h.service.LineByID(r.Context(), id)
	respond(h, w, r, start, query, lines, err)
}

// LinesByMode lists the lines of a transport mode.
//
//	@Summary	List lines by mode
//	@Tags		Lines
//	@Produce	json
//	@Param		mode	path		string	true	"Mode, e.g. tube"
//	@Success	200		{object}	envelope.Response[transit.Line]
//	@Router		/lines-by-mode/{mode} [get]
func (h *TransitHandler) LinesByMode(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	mode := chi.URLParam(r, "mode")
	query := "mode=" + mode
	h.received(r, query)

	lines, err := h.service.LinesByMode(r.Context(), mode)
	respond(h, w, r, start, query, lines, err)
}

// ArrivalsByLines returns arrivals for a comma-separated list of lines.
//
//	@Summary	Arrivals by lines
//	@Tags		Arrivals
//	@Produce	json
//	@Param		query	query		string	true	"Comma-separated line ids"
//	@Success	200		{object}	envelope.Response[transit.Prediction]
//	@Router		/arrivals-by-lines [get]
func (h *TransitHandler) ArrivalsByLines(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	query, ok := h.requireQuery(w, r)
	if !ok {
		return
	}

	arrivals, err := h.service.ArrivalsByLines(r.Context(), query)
	respond(h, w, r, start, query, arrivals, err)
}

// ArrivalsByStation returns arrivals at a stop for each listed line.
//
//	@Summary	Arrivals at a station
//	@Tags		Arrivals
//	@Produce	json
//	@Param		query	query		string	true	"Stop point id"
//	@Param		lines	query		string	false	"Comma-separated line ids (default tube)"
//	@Success	200		{object}	envelope.Response[transit.Prediction]
//	@Router		/arrivals-by-station [get]
func (h *TransitHandler) ArrivalsByStation(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	station, ok := h.requireQuery(w, r)
	if !ok {
		return
	}

	arrivals, err := h.service.ArrivalsAtStation(r.Context(), station, r.URL.Query().Get("lines"))
	respond(h, w, r, start, station, arrivals, err)
}

// DisruptionsByModes returns disruptions for a comma-separated list of modes.
//
//	@Summary	Disruptions by modes
//	@Tags		Disruptions
//	@Produce	json
//	@Param		query	query		string	true	"Comma-separated modes: tube, overground, dlr, elizabeth-line"
//	@Success	200		{object}	envelope.Response[transit.Disruption]
//	@Failure	500		{object}	envelope.Failure	"Invalid mode"
//	@Router		/disruption-by-modes [get]
func (h *TransitHandler) DisruptionsByModes(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	query, ok := h.requireQuery(w, r)
	if !ok {
		return
	}

	disruptions, err := h.service.DisruptionsByModes(r.Context(), query)
	respond(h, w, r, start, query, disruptions, err)
}

// DisruptionsByLines returns disruptions for a comma-separated list of lines.
//
//	@Summary	Disruptions by lines
//	@Tags		Disruptions
//	@Produce	json
//	@Param		query	query		string	true	"Comma-separated line ids"
//	@Success	200		{object}	envelope.Response[transit.Disruption]
//	@Router		/disruption-by-lines [get]
func (h *TransitHandler) DisruptionsByLines(w http.ResponseWriter, r *http.Request) {
	start := h.clock.Now()
	query, ok := h.requireQuery(w, r)
	if !ok {
		return
	}

	disruptions, err := h.service.DisruptionsByLines(r.Context(), query)
	respond(h, w, r, start, query, disruptions, err)
}

func (h *TransitHandler) requireQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, r, h.logger, apperr.Parse("Missing query parameter: query"))
		return "", false
	}
	h.received(r, query)
	return query, true
}

func (h *TransitHandler) received(r *http.Request, query string) {
	h.logger.Info().
		Str("path", r.URL.Path).
		Str("query", query).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("received query")
}

func respond[T any](h *TransitHandler, w http.ResponseWriter, r *http.Request, start time.Time, query string, results []T, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope.New(start, h.clock.Now(), query, results))
}
