package ports

import (
	"context"
	"time"

	"sameday-dispatch-service/internal/domain"
)

// Port: persistence boundary for routes and the status choreography
// that must be atomic with route writes.
type RouteRepository interface {
	// GetOrCreate returns the route for the date, creating a planned
	// route when none exists. Safe under concurrent callers: at most one
	// row per date ever exists.
	GetOrCreate(ctx context.Context, date string) (*domain.Route, error)

	Get(ctx context.Context, id string) (*domain.Route, error)

	GetByDate(ctx context.Context, date string) (*domain.Route, error)

	// SaveOptimization persists a fresh visiting order atomically:
	// optimized stops on the date not present in seq revert to pending,
	// stops present in seq become optimized, and the route row takes the
	// new sequence and metrics, all in one transaction.
	SaveOptimization(ctx context.Context, date string, seq []domain.SequenceEntry, distanceMeters, durationSeconds int) (*domain.Route, error)

	// StartCascade moves the route from planned to active and every
	// optimized stop on its date to in_transit, atomically. Returns the
	// updated route and the number of stops moved.
	StartCascade(ctx context.Context, id string) (*domain.Route, int, error)

	SetStatus(ctx context.Context, id string, status domain.RouteStatus) (*domain.Route, error)

	// SetArchived toggles the archive flag. Archiving an archived route
	// or unarchiving a non-archived one is a conflict.
	SetArchived(ctx context.Context, id string, archived bool) (*domain.Route, error)

	// ArchiveSweep archives every non-archived terminal route whose date
	// is strictly before cutoff. Returns the number archived.
	ArchiveSweep(ctx context.Context, cutoff time.Time) (int, error)

	// ClearDate removes notifications, tracking pings, stops and the
	// route for the date in one transaction and reports per-category
	// counts.
	ClearDate(ctx context.Context, date string) (domain.ClearCounts, error)
}
