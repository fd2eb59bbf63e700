package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Open connects to Postgres through the registered pgx stdlib driver
// and verifies the connection before returning the pool.
func Open(databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db.Open: open postgres database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db.Open: verify postgres connection: %w", err)
	}

	return conn, nil
}
