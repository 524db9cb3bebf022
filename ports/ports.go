// Package ports defines interfaces (contracts) between layers.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/tb8/tb8/domain/transit"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Upstream Ports
// -----------------------------------------------------------------------------

// TransitClient fetches data from the TfL API. Every failure is an
// *apperr.Error. Implementations must be safe for concurrent use.
type TransitClient interface {
	FetchLines(ctx context.Context) ([]transit.Line, error)

	// FetchLineByID returns at least one line or fails.
	FetchLineByID(ctx context.Context, id string) ([]transit.Line, error)

	FetchLinesByMode(ctx context.Context, mode string) ([]transit.Line, error)

	FetchArrivalsByLine(ctx context.Context, lineID string) ([]transit.Prediction, error)

	FetchArrivalsByLineAtStop(ctx context.Context, lineID, stopID string) ([]transit.Prediction, error)

	FetchDisruptionsByLine(ctx context.Context, lineID string) ([]transit.Disruption, error)

	FetchDisruptionsByMode(ctx context.Context, mode string) ([]transit.Disruption, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
