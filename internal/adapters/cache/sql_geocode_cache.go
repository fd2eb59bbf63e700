package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sameday-dispatch-service/internal/domain"
	"sameday-dispatch-service/internal/platform/obs"
)

// GeocodeEntry is one cached address resolution.
type GeocodeEntry struct {
	Coord     domain.Coordinates
	Formatted string
}

// SQLGeocodeCache is a SQL-backed cache mapping normalized addresses to
// resolved coordinates. Address keys are expected to be normalized by
// the caller.
type SQLGeocodeCache struct {
	DB *sql.DB
}

func NewSQLGeocodeCache(db *sql.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Fetch cached resolutions for the given addresses.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]GeocodeEntry, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	if len(addresses) == 0 {
		return map[string]GeocodeEntry{}, nil
	}

	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(addresses))
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}

		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		uniq = append(uniq, a)
	}

	if len(uniq) == 0 {
		return map[string]GeocodeEntry{}, nil
	}

	q := `
	SELECT address, lon, lat, formatted
    FROM geocode_cache
    WHERE address = ANY($1::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, uniq)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]GeocodeEntry, len(uniq))
	for rows.Next() {
		var addr, formatted string
		var lon, lat float64
		if err := rows.Scan(&addr, &lon, &lat, &formatted); err != nil {
			return nil, fmt.Errorf("get geocode cache: scan rows: %w", err)
		}
		out[addr] = GeocodeEntry{
			Coord:     domain.Coordinates{Lon: lon, Lat: lat},
			Formatted: formatted,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geocode cache: row iteration: %w", err)
	}

	return out, nil
}

// Store address -> resolution mappings in the cache.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]GeocodeEntry) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO geocode_cache (address, lon, lat, formatted)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (address) DO UPDATE
	SET lon = EXCLUDED.lon,
		lat = EXCLUDED.lat,
		formatted = EXCLUDED.formatted;
	`)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for addr, entry := range results {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}

		if _, err := stmt.ExecContext(ctx, addr, entry.Coord.Lon, entry.Coord.Lat, entry.Formatted); err != nil {
			return fmt.Errorf("insert geocode cache coord=%q: %w", addr, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}

	return nil
}
