package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mwhitford/zone-weather-service/internal/models"
	"github.com/mwhitford/zone-weather-service/internal/storage"
)

// Store implements storage.ZoneStore backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.ZoneStore = (*Store)(nil)

// Open connects to Postgres using the given DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the zones table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS zones (
			key                  text PRIMARY KEY,
			name                 text NOT NULL,
			state                text NOT NULL,
			observation_stations text[] NOT NULL DEFAULT '{}',
			updated_at           timestamptz NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure zones schema: %w", err)
	}
	return nil
}

// UpsertZones inserts or updates the given zones in one transaction.
func (s *Store) UpsertZones(ctx context.Context, zones []models.Zone) error {
	if len(zones) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zones (key, name, state, observation_stations, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET name = EXCLUDED.name,
		    state = EXCLUDED.state,
		    observation_stations = EXCLUDED.observation_stations,
		    updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, z := range zones {
		if _, err := stmt.ExecContext(ctx, z.Key, z.Name, z.State, pq.Array(z.ObservationStations), now); err != nil {
			return fmt.Errorf("upsert zone %s: %w", z.Key, err)
		}
	}
	return tx.Commit()
}

// ListZones returns all mirrored zones ordered by key.
func (s *Store) ListZones(ctx context.Context) ([]models.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, name, state, observation_stations
		FROM zones
		ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.Key, &z.Name, &z.State, pq.Array(&z.ObservationStations)); err != nil {
			return nil, err
		}
		result = append(result, z)
	}
	return result, rows.Err()
}

// Ping checks database reachability. Used for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle. Call during shutdown.
func (s *Store) Close() error {
	return s.db.Close()
}
