package repositories

import (
	"context"
	"database/sql"

	"sameday-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the TrackingRepository port.
type PostgresTrackingRepository struct{ DB *sql.DB }

func NewPostgresTrackingRepository(db *sql.DB) *PostgresTrackingRepository {
	return &PostgresTrackingRepository{DB: db}
}

func (r *PostgresTrackingRepository) Append(ctx context.Context, ping *domain.TrackingPing) error {
	query := `
	INSERT INTO tracking_pings (route_id, stop_id, lon, lat, recorded_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id;
	`

	err := r.DB.QueryRowContext(ctx, query,
		ping.RouteID, ping.StopID, ping.Coord.Lon, ping.Coord.Lat, ping.RecordedAt,
	).Scan(&ping.ID)
	if err != nil {
		return domain.StorageErr("insert tracking ping", err)
	}
	return nil
}

func (r *PostgresTrackingRepository) ListByRoute(ctx context.Context, routeID string) ([]*domain.TrackingPing, error) {
	return r.list(ctx, `route_id = $1`, routeID)
}

func (r *PostgresTrackingRepository) ListByStop(ctx context.Context, stopID string) ([]*domain.TrackingPing, error) {
	return r.list(ctx, `stop_id = $1`, stopID)
}

func (r *PostgresTrackingRepository) list(ctx context.Context, where, arg string) ([]*domain.TrackingPing, error) {
	query := `
	SELECT id, route_id, stop_id, lon, lat, recorded_at
	FROM tracking_pings
	WHERE ` + where + `
	ORDER BY recorded_at;
	`

	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, domain.StorageErr("list tracking pings", err)
	}
	defer rows.Close()

	out := make([]*domain.TrackingPing, 0, 64)
	for rows.Next() {
		var p domain.TrackingPing
		if err := rows.Scan(&p.ID, &p.RouteID, &p.StopID, &p.Coord.Lon, &p.Coord.Lat, &p.RecordedAt); err != nil {
			return nil, domain.StorageErr("scan tracking ping row", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageErr("tracking ping row iteration", err)
	}

	return out, nil
}
