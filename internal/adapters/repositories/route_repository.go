package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sameday-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the RouteRepository port.
type PostgresRouteRepository struct{ DB *sql.DB }

func NewPostgresRouteRepository(db *sql.DB) *PostgresRouteRepository {
	return &PostgresRouteRepository{DB: db}
}

const routeColumns = `
	id, route_date, status, total_distance_meters, total_duration_seconds,
	stop_sequence, archived, archived_at, created_at, updated_at
`

func scanRoute(row rowScanner) (*domain.Route, error) {
	var (
		route      domain.Route
		seqJSON    []byte
		archivedAt sql.NullTime
	)
	err := row.Scan(
		&route.ID, &route.RouteDate, &route.Status,
		&route.TotalDistanceMeters, &route.TotalDurationSeconds,
		&seqJSON, &route.Archived, &archivedAt,
		&route.CreatedAt, &route.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		route.ArchivedAt = &t
	}
	if len(seqJSON) > 0 {
		if err := json.Unmarshal(seqJSON, &route.Sequence); err != nil {
			return nil, fmt.Errorf("decode stop sequence: %w", err)
		}
	}
	return &route, nil
}

// GetOrCreate relies on the route_date unique constraint: under
// concurrent callers at most one insert wins and everyone reads the
// same row back.
func (r *PostgresRouteRepository) GetOrCreate(ctx context.Context, date string) (*domain.Route, error) {
	insert := `
	INSERT INTO routes (id, route_date, status, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (route_date) DO NOTHING;
	`
	if _, err := r.DB.ExecContext(ctx, insert, uuid.NewString(), date, domain.RoutePlanned); err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("create route for %s", date), err)
	}

	return r.GetByDate(ctx, date)
}

func (r *PostgresRouteRepository) Get(ctx context.Context, id string) (*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1;`

	route, err := scanRoute(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("route %s not found", id)
	}
	if err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("get route %s", id), err)
	}
	return route, nil
}

func (r *PostgresRouteRepository) GetByDate(ctx context.Context, date string) (*domain.Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE route_date = $1;`

	route, err := scanRoute(r.DB.QueryRowContext(ctx, query, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("no route for date %s", date)
	}
	if err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("get route for %s", date), err)
	}
	return route, nil
}

// SaveOptimization applies a fresh visiting order as one causally
// ordered unit: stale optimized stops revert to pending, the included
// stops become optimized, and the route row takes the new sequence.
// The route is created when the date has none yet.
func (r *PostgresRouteRepository) SaveOptimization(
	ctx context.Context,
	date string,
	seq []domain.SequenceEntry,
	distanceMeters, durationSeconds int,
) (*domain.Route, error) {
	seqJSON, err := json.Marshal(seq)
	if err != nil {
		return nil, fmt.Errorf("encode stop sequence: %w", err)
	}

	ids := make([]string, len(seq))
	for i, entry := range seq {
		ids[i] = entry.StopID
	}

	var route *domain.Route
	err = InTx(ctx, r.DB, func(tx *sql.Tx) error {
		insert := `
		INSERT INTO routes (id, route_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (route_date) DO NOTHING;
		`
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), date, domain.RoutePlanned); err != nil {
			return domain.StorageErr(fmt.Sprintf("ensure route for %s", date), err)
		}

		// Any stop optimized by a previous run but absent from this one
		// loses its stale optimized status.
		reset := `
		UPDATE delivery_stops
		SET status = $2, updated_at = NOW()
		WHERE scheduled_date = $1 AND status = $3;
		`
		if _, err := tx.ExecContext(ctx, reset, date, domain.StopPending, domain.StopOptimized); err != nil {
			return domain.StorageErr("reset optimized stops", err)
		}

		mark := `
		UPDATE delivery_stops
		SET status = $2, updated_at = NOW()
		WHERE id = ANY($1::text[]);
		`
		if _, err := tx.ExecContext(ctx, mark, ids, domain.StopOptimized); err != nil {
			return domain.StorageErr("mark stops optimized", err)
		}

		update := `
		UPDATE routes
		SET stop_sequence = $2, total_distance_meters = $3,
			total_duration_seconds = $4, updated_at = NOW()
		WHERE route_date = $1
		RETURNING ` + routeColumns + `;`

		route, err = scanRoute(tx.QueryRowContext(ctx, update, date, seqJSON, distanceMeters, durationSeconds))
		if err != nil {
			return domain.StorageErr(fmt.Sprintf("record optimization for %s", date), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

// StartCascade activates a planned route and moves its optimized stops
// to in_transit in the same transaction.
func (r *PostgresRouteRepository) StartCascade(ctx context.Context, id string) (*domain.Route, int, error) {
	var (
		route *domain.Route
		moved int
	)
	err := InTx(ctx, r.DB, func(tx *sql.Tx) error {
		query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1 FOR UPDATE;`

		current, err := scanRoute(tx.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("route %s not found", id)
		}
		if err != nil {
			return domain.StorageErr(fmt.Sprintf("lock route %s", id), err)
		}

		if current.Status != domain.RoutePlanned {
			return domain.Conflictf("route %s cannot start from status %s", id, current.Status)
		}

		update := `
		UPDATE routes SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + routeColumns + `;`

		route, err = scanRoute(tx.QueryRowContext(ctx, update, id, domain.RouteActive))
		if err != nil {
			return domain.StorageErr(fmt.Sprintf("start route %s", id), err)
		}

		cascade := `
		UPDATE delivery_stops
		SET status = $2, updated_at = NOW()
		WHERE scheduled_date = $1 AND status = $3;
		`
		res, err := tx.ExecContext(ctx, cascade, route.RouteDate, domain.StopInTransit, domain.StopOptimized)
		if err != nil {
			return domain.StorageErr("cascade stops to in_transit", err)
		}
		n, _ := res.RowsAffected()
		moved = int(n)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return route, moved, nil
}

func (r *PostgresRouteRepository) SetStatus(ctx context.Context, id string, status domain.RouteStatus) (*domain.Route, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, domain.Conflictf("route %s cannot move from %s to %s", id, current.Status, status)
	}

	query := `
	UPDATE routes SET status = $2, updated_at = NOW()
	WHERE id = $1
	RETURNING ` + routeColumns + `;`

	route, err := scanRoute(r.DB.QueryRowContext(ctx, query, id, status))
	if err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("set route %s status", id), err)
	}
	return route, nil
}

func (r *PostgresRouteRepository) SetArchived(ctx context.Context, id string, archived bool) (*domain.Route, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if archived {
		if current.Archived {
			return nil, domain.Conflictf("route %s is already archived", id)
		}
		if !current.Status.Terminal() {
			return nil, domain.Conflictf("route %s cannot be archived while %s", id, current.Status)
		}
	} else if !current.Archived {
		return nil, domain.Conflictf("route %s is not archived", id)
	}

	query := `
	UPDATE routes
	SET archived = $2,
		archived_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + routeColumns + `;`

	route, err := scanRoute(r.DB.QueryRowContext(ctx, query, id, archived))
	if err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("set route %s archived", id), err)
	}
	return route, nil
}

// ArchiveSweep archives terminal routes older than cutoff. Route dates
// are stored as YYYY-MM-DD text, so lexicographic comparison matches
// chronological order.
func (r *PostgresRouteRepository) ArchiveSweep(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
	UPDATE routes
	SET archived = TRUE, archived_at = NOW(), updated_at = NOW()
	WHERE archived = FALSE
		AND status IN ($1, $2)
		AND route_date < $3;
	`

	res, err := r.DB.ExecContext(ctx, query,
		domain.RouteCompleted, domain.RouteCancelled, cutoff.Format(domain.DateLayout))
	if err != nil {
		return 0, domain.StorageErr("archive sweep", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ClearDate removes every record for a date in dependency order inside
// one transaction.
func (r *PostgresRouteRepository) ClearDate(ctx context.Context, date string) (domain.ClearCounts, error) {
	var counts domain.ClearCounts

	err := InTx(ctx, r.DB, func(tx *sql.Tx) error {
		count := func(res sql.Result) int {
			n, _ := res.RowsAffected()
			return int(n)
		}

		res, err := tx.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE stop_id IN (SELECT id FROM delivery_stops WHERE scheduled_date = $1);
		`, date)
		if err != nil {
			return domain.StorageErr("clear notifications", err)
		}
		counts.Notifications = count(res)

		res, err = tx.ExecContext(ctx, `
		DELETE FROM tracking_pings
		WHERE route_id IN (SELECT id FROM routes WHERE route_date = $1)
			OR stop_id IN (SELECT id FROM delivery_stops WHERE scheduled_date = $1);
		`, date)
		if err != nil {
			return domain.StorageErr("clear tracking pings", err)
		}
		counts.TrackingPings = count(res)

		res, err = tx.ExecContext(ctx, `DELETE FROM delivery_stops WHERE scheduled_date = $1;`, date)
		if err != nil {
			return domain.StorageErr("clear stops", err)
		}
		counts.Stops = count(res)

		res, err = tx.ExecContext(ctx, `DELETE FROM routes WHERE route_date = $1;`, date)
		if err != nil {
			return domain.StorageErr("clear route", err)
		}
		counts.Routes = count(res)

		return nil
	})
	if err != nil {
		return domain.ClearCounts{}, err
	}
	return counts, nil
}
