// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/tb8/tb8/domain/apperr"
	"github.com/tb8/tb8/domain/transit"
	"github.com/tb8/tb8/ports"
)

// DefaultStationLines is used when an arrivals-by-station query names no lines.
const DefaultStationLines = "tube"

// TransitService answers the gateway's queries. List queries fan out to
// one upstream call per entry, in order, and the first failure aborts the
// whole query.
type TransitService struct {
	client   ports.TransitClient
	validate *validator.Validate
	modeTag  string
	logger   zerolog.Logger
}

// NewTransitService creates a transit service backed by client.
func NewTransitService(client ports.TransitClient, logger zerolog.Logger) *TransitService {
	return &TransitService{
		client:   client,
		validate: validator.New(),
		modeTag:  transit.OneOfTag(),
		logger:   logger,
	}
}

func (s *TransitService) Lines(ctx context.Context) ([]transit.Line, error) {
	return s.client.FetchLines(ctx)
}

func (s *TransitService) LineByID(ctx context.Context, id string) ([]transit.Line, error) {
	return s.client.FetchLineByID(ctx, strings.TrimSpace(id))
}

// LinesByMode passes mode through unchecked; the API knows more modes than
// the disruption allow-list.
func (s *TransitService) LinesByMode(ctx context.Context, mode string) ([]transit.Line, error) {
	return s.client.FetchLinesByMode(ctx, strings.TrimSpace(mode))
}

// ArrivalsByLines returns arrivals for every line in a comma-separated list.
func (s *TransitService) ArrivalsByLines(ctx context.Context, lines string) ([]transit.Prediction, error) {
	ids, err := splitList("line id", lines)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, s, ids, s.client.FetchArrivalsByLine)
}

// ArrivalsAtStation returns arrivals at stationID for each listed line.
// An empty list means DefaultStationLines.
func (s *TransitService) ArrivalsAtStation(ctx context.Context, stationID, lines string) ([]transit.Prediction, error) {
	stationID = strings.TrimSpace(stationID)
	if stationID == "" {
		return nil, apperr.Parse("Missing station id")
	}
	if strings.TrimSpace(lines) == "" {
		lines = DefaultStationLines
	}
	ids, err := splitList("line id", lines)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, s, ids, func(ctx context.Context, lineID string) ([]transit.Prediction, error) {
		return s.client.FetchArrivalsByLineAtStop(ctx, lineID, stationID)
	})
}

// DisruptionsByModes returns disruptions for every listed mode. Every mode
// is checked against the allow-list before the first upstream call.
func (s *TransitService) DisruptionsByModes(ctx context.Context, modes string) ([]transit.Disruption, error) {
	list, err := splitList("mode", modes)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if err := s.validate.Var(m, s.modeTag); err != nil {
			return nil, apperr.Parse("Invalid mode: %s", m)
		}
	}
	return fanOut(ctx, s, list, s.client.FetchDisruptionsByMode)
}

// DisruptionsByLines returns disruptions for every line in the list.
func (s *TransitService) DisruptionsByLines(ctx context.Context, lines string) ([]transit.Disruption, error) {
	ids, err := splitList("line id", lines)
	if err != nil {
		return nil, err
	}
	return fanOut(ctx, s, ids, s.client.FetchDisruptionsByLine)
}

func fanOut[T any](ctx context.Context, s *TransitService, ids []string, fetch func(context.Context, string) ([]T, error)) ([]T, error) {
	out := []T{}
	for _, id := range ids {
		items, err := fetch(ctx, id)
		if err != nil {
			s.logger.Debug().Err(err).Str("id", id).Int("of", len(ids)).Msg("fan-out aborted")
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// splitList splits a comma-separated list. A blank list or blank entry is
// rejected.
func splitList(what, list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, apperr.Parse("Missing %s list", what)
	}
	parts := transit.SplitList(list)
	for _, p := range parts {
		if p == "" {
			return nil, apperr.Parse("Empty %s in list %q", what, list)
		}
	}
	return parts, nil
}
