package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sameday-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the StopRepository port.
type PostgresStopRepository struct{ DB *sql.DB }

func NewPostgresStopRepository(db *sql.DB) *PostgresStopRepository {
	return &PostgresStopRepository{DB: db}
}

const stopColumns = `
	id, external_order_id, seq, scheduled_date, customer_name, phone,
	address, lon, lat, product, category, parcel_size, priority,
	window_start, window_end, kind, status, raw_payload, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStop(row rowScanner) (*domain.DeliveryStop, error) {
	var (
		stop       domain.DeliveryStop
		externalID sql.NullString
		rawPayload []byte
	)
	err := row.Scan(
		&stop.ID, &externalID, &stop.Seq, &stop.ScheduledDate,
		&stop.CustomerName, &stop.Phone, &stop.Address,
		&stop.Coord.Lon, &stop.Coord.Lat, &stop.Product, &stop.Category,
		&stop.Size, &stop.Priority, &stop.WindowStart, &stop.WindowEnd,
		&stop.Kind, &stop.Status, &rawPayload, &stop.CreatedAt, &stop.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	stop.ExternalOrderID = externalID.String
	stop.RawPayload = rawPayload
	return &stop, nil
}

func (r *PostgresStopRepository) Create(ctx context.Context, stop *domain.DeliveryStop) error {
	if r.DB == nil {
		return errors.New("stop repository: DB is nil")
	}

	query := `
	INSERT INTO delivery_stops (
		id, external_order_id, scheduled_date, customer_name, phone,
		address, lon, lat, product, category, parcel_size, priority,
		window_start, window_end, kind, status, raw_payload, created_at, updated_at
	)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	RETURNING seq;
	`

	err := r.DB.QueryRowContext(ctx, query,
		stop.ID, stop.ExternalOrderID, stop.ScheduledDate, stop.CustomerName,
		stop.Phone, stop.Address, stop.Coord.Lon, stop.Coord.Lat,
		stop.Product, stop.Category, stop.Size, stop.Priority,
		stop.WindowStart, stop.WindowEnd, stop.Kind, stop.Status,
		nullableJSON(stop.RawPayload), stop.CreatedAt, stop.UpdatedAt,
	).Scan(&stop.Seq)
	if err != nil {
		return domain.StorageErr(fmt.Sprintf("insert stop %s", stop.ID), err)
	}
	return nil
}

func (r *PostgresStopRepository) Get(ctx context.Context, id string) (*domain.DeliveryStop, error) {
	query := `SELECT ` + stopColumns + ` FROM delivery_stops WHERE id = $1;`

	stop, err := scanStop(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("stop %s not found", id)
	}
	if err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("get stop %s", id), err)
	}
	return stop, nil
}

func (r *PostgresStopRepository) ListByDate(ctx context.Context, date string) ([]*domain.DeliveryStop, error) {
	query := `
	SELECT ` + stopColumns + `
	FROM delivery_stops
	WHERE scheduled_date = $1
	ORDER BY seq;
	`

	rows, err := r.DB.QueryContext(ctx, query, date)
	if err != nil {
		return nil, domain.StorageErr("list stops by date", err)
	}
	defer rows.Close()

	stops := make([]*domain.DeliveryStop, 0, 32)
	for rows.Next() {
		stop, err := scanStop(rows)
		if err != nil {
			return nil, domain.StorageErr("scan stop row", err)
		}
		stops = append(stops, stop)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageErr("stop row iteration", err)
	}

	return stops, nil
}

func (r *PostgresStopRepository) Update(ctx context.Context, stop *domain.DeliveryStop) error {
	query := `
	UPDATE delivery_stops
	SET scheduled_date = $2, customer_name = $3, phone = $4, address = $5,
		lon = $6, lat = $7, product = $8, category = $9, parcel_size = $10,
		priority = $11, window_start = $12, window_end = $13, kind = $14,
		status = $15, updated_at = $16
	WHERE id = $1;
	`

	res, err := r.DB.ExecContext(ctx, query,
		stop.ID, stop.ScheduledDate, stop.CustomerName, stop.Phone,
		stop.Address, stop.Coord.Lon, stop.Coord.Lat, stop.Product,
		stop.Category, stop.Size, stop.Priority, stop.WindowStart,
		stop.WindowEnd, stop.Kind, stop.Status, stop.UpdatedAt,
	)
	if err != nil {
		return domain.StorageErr(fmt.Sprintf("update stop %s", stop.ID), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("stop %s not found", stop.ID)
	}
	return nil
}

func (r *PostgresStopRepository) ExternalIDExists(ctx context.Context, externalID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM delivery_stops WHERE external_order_id = $1);`

	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, externalID).Scan(&exists); err != nil {
		return false, domain.StorageErr("check external order id", err)
	}
	return exists, nil
}

func (r *PostgresStopRepository) MarkDelivered(ctx context.Context, id string) (*domain.DeliveryStop, error) {
	query := `
	UPDATE delivery_stops
	SET status = $2, updated_at = NOW()
	WHERE id = $1
	RETURNING ` + stopColumns + `;`

	stop, err := scanStop(r.DB.QueryRowContext(ctx, query, id, domain.StopDelivered))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("stop %s not found", id)
	}
	if err != nil {
		return nil, domain.StorageErr(fmt.Sprintf("mark stop %s delivered", id), err)
	}
	return stop, nil
}

// Delete removes the stop and its child rows in one transaction so a
// partial cascade can never persist.
func (r *PostgresStopRepository) Delete(ctx context.Context, id string) error {
	return InTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE stop_id = $1;`, id); err != nil {
			return domain.StorageErr("delete stop notifications", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tracking_pings WHERE stop_id = $1;`, id); err != nil {
			return domain.StorageErr("delete stop tracking pings", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM delivery_stops WHERE id = $1;`, id)
		if err != nil {
			return domain.StorageErr(fmt.Sprintf("delete stop %s", id), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NotFoundf("stop %s not found", id)
		}
		return nil
	})
}

func (r *PostgresStopRepository) AddNotification(ctx context.Context, stopID, notifType, message string) error {
	query := `
	INSERT INTO notifications (stop_id, type, message, created_at)
	VALUES ($1, $2, $3, NOW());
	`
	if _, err := r.DB.ExecContext(ctx, query, stopID, notifType, message); err != nil {
		return domain.StorageErr("insert notification", err)
	}
	return nil
}

func (r *PostgresStopRepository) NotificationsByStop(ctx context.Context, stopID string) ([]domain.Notification, error) {
	query := `
	SELECT id, stop_id, type, message, created_at
	FROM notifications
	WHERE stop_id = $1
	ORDER BY id;
	`

	rows, err := r.DB.QueryContext(ctx, query, stopID)
	if err != nil {
		return nil, domain.StorageErr("list notifications", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0, 8)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.StopID, &n.Type, &n.Message, &n.CreatedAt); err != nil {
			return nil, domain.StorageErr("scan notification row", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageErr("notification row iteration", err)
	}

	return out, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
