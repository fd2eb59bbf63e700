package repositories

import (
	"context"
	"database/sql"
	"errors"

	"sameday-dispatch-service/internal/domain"
)

// Postgres-backed implementation of the SettingsRepository port.
type PostgresSettingsRepository struct{ DB *sql.DB }

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{DB: db}
}

func (r *PostgresSettingsRepository) Get(ctx context.Context, key, fallback string) (string, error) {
	query := `SELECT value FROM settings WHERE key = $1;`

	var value string
	err := r.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", domain.StorageErr("get setting "+key, err)
	}
	return value, nil
}

func (r *PostgresSettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO settings (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;
	`
	if _, err := r.DB.ExecContext(ctx, query, key, value); err != nil {
		return domain.StorageErr("set setting "+key, err)
	}
	return nil
}

func (r *PostgresSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key;`)
	if err != nil {
		return nil, domain.StorageErr("list settings", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, domain.StorageErr("scan setting row", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageErr("settings row iteration", err)
	}

	return out, nil
}
