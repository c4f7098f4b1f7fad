package store

import (
	"context"
	"fmt"
)

// migrate creates the schema. Statements are idempotent so startup can run
// them unconditionally.
func (s *Postgres) migrate(ctx context.Context) error {
	if s.log != nil {
		s.log.Info("running postgres migrations")
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS devices (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'APPLIANCE',
			owner_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_owner ON devices (owner_id)`,
		// The composite primary key doubles as the (device_id, timestamp)
		// index time-range queries need.
		`CREATE TABLE IF NOT EXISTS telemetry (
			device_id UUID NOT NULL REFERENCES devices (id) ON DELETE CASCADE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			energy_usage DECIMAL(10, 4) NOT NULL,
			PRIMARY KEY (device_id, timestamp)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	if s.log != nil {
		s.log.Info("postgres migrations completed")
	}
	return nil
}
