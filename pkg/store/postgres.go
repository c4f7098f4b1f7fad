// Package store persists users, devices, and telemetry in PostgreSQL and
// exposes the read surface the conversational engine executes against.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homewatt/homewatt/pkg/engine"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible
	// to the requesting owner.
	ErrNotFound = errors.New("store: not found")

	// ErrEmailTaken is returned when registering an already-known email.
	ErrEmailTaken = errors.New("store: email already registered")
)

// User is an account row.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	IsActive     bool
}

// Device is a registered smart-home device.
type Device struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	OwnerID uuid.UUID `json:"owner_id"`
}

// Stats is an aggregate usage summary for one device. Pointers stay nil when
// no readings matched the window.
type Stats struct {
	DeviceID       uuid.UUID `json:"device_id"`
	TimePeriodDays int       `json:"time_period_days"`
	MaxUsage       *float64  `json:"max_usage"`
	MinUsage       *float64  `json:"min_usage"`
	AvgUsage       *float64  `json:"avg_usage"`
}

// Postgres wraps a pgx pool. It implements engine.Store.
type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects, pings, and migrates the database.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Postgres{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// aggregateFuncs maps engine metrics to SQL aggregate functions. Interpolated
// into query text, so only values from this map may ever be used.
var aggregateFuncs = map[engine.Metric]string{
	engine.MetricSum: "sum",
	engine.MetricAvg: "avg",
	engine.MetricMin: "min",
	engine.MetricMax: "max",
}

// Aggregate computes a single aggregate of energy usage over the device set
// and inclusive time range. A nil result means no rows matched.
func (s *Postgres) Aggregate(ctx context.Context, metric engine.Metric, deviceIDs []uuid.UUID, start, end time.Time) (*float64, error) {
	fn, ok := aggregateFuncs[metric]
	if !ok {
		return nil, fmt.Errorf("unsupported aggregate metric %q", metric)
	}

	query := fmt.Sprintf(`
		SELECT %s(energy_usage)::float8
		FROM telemetry
		WHERE device_id = ANY($1) AND timestamp >= $2 AND timestamp <= $3
	`, fn)

	var value *float64
	if err := s.pool.QueryRow(ctx, query, deviceIDs, start, end).Scan(&value); err != nil {
		return nil, fmt.Errorf("aggregate query: %w", err)
	}
	return value, nil
}

// ListReadings returns up to limit matching readings, most recent first.
func (s *Postgres) ListReadings(ctx context.Context, deviceIDs []uuid.UUID, start, end time.Time, limit int) ([]engine.Reading, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT timestamp, energy_usage::float8
		FROM telemetry
		WHERE device_id = ANY($1) AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4
	`, deviceIDs, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var readings []engine.Reading
	for rows.Next() {
		var r engine.Reading
		if err := rows.Scan(&r.Timestamp, &r.EnergyWatts); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// RawRead executes a model-generated statement with the caller's id as the
// only binding, exposed as @user_id. The SELECT check duplicates the
// executor's gate as a backstop at the store boundary.
func (s *Postgres) RawRead(ctx context.Context, statement string, userID uuid.UUID) ([]map[string]any, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(statement)), "SELECT") {
		return nil, fmt.Errorf("refusing non-SELECT statement")
	}

	rows, err := s.pool.Query(ctx, statement, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("raw scan: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// InsertReading records one telemetry point.
func (s *Postgres) InsertReading(ctx context.Context, deviceID uuid.UUID, timestamp time.Time, energyWatts float64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO telemetry (device_id, timestamp, energy_usage)
		VALUES ($1, $2, $3)
	`, deviceID, timestamp, energyWatts)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// DeviceStats aggregates usage for one owned device over the trailing
// window. Returns ErrNotFound when the device is not owned by owner.
func (s *Postgres) DeviceStats(ctx context.Context, deviceID, owner uuid.UUID, days int) (*Stats, error) {
	if _, err := s.GetDevice(ctx, deviceID, owner); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	stats := &Stats{DeviceID: deviceID, TimePeriodDays: days}
	err := s.pool.QueryRow(ctx, `
		SELECT max(energy_usage)::float8, min(energy_usage)::float8, avg(energy_usage)::float8
		FROM telemetry
		WHERE device_id = $1 AND timestamp >= $2
	`, deviceID, cutoff).Scan(&stats.MaxUsage, &stats.MinUsage, &stats.AvgUsage)
	if err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	return stats, nil
}

// ListDevicesByOwner returns every device the owner has registered.
func (s *Postgres) ListDevicesByOwner(ctx context.Context, owner uuid.UUID) ([]Device, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, type, owner_id FROM devices WHERE owner_id = $1 ORDER BY name
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("devices query: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.OwnerID); err != nil {
			return nil, fmt.Errorf("devices scan: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// CreateDevice registers a device for the owner.
func (s *Postgres) CreateDevice(ctx context.Context, name, deviceType string, owner uuid.UUID) (*Device, error) {
	d := &Device{ID: uuid.New(), Name: name, Type: deviceType, OwnerID: owner}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO devices (id, name, type, owner_id) VALUES ($1, $2, $3, $4)
	`, d.ID, d.Name, d.Type, d.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("insert device: %w", err)
	}
	return d, nil
}

// GetDevice fetches one device scoped to its owner; a device owned by
// someone else is indistinguishable from a missing one.
func (s *Postgres) GetDevice(ctx context.Context, id, owner uuid.UUID) (*Device, error) {
	var d Device
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, type, owner_id FROM devices WHERE id = $1 AND owner_id = $2
	`, id, owner).Scan(&d.ID, &d.Name, &d.Type, &d.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("device query: %w", err)
	}
	return &d, nil
}

// DeleteDevice removes an owned device and its telemetry.
func (s *Postgres) DeleteDevice(ctx context.Context, id, owner uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM devices WHERE id = $1 AND owner_id = $2
	`, id, owner)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateUser registers an account with an already-hashed password.
func (s *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	u := &User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, IsActive: true}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail fetches an account by email.
func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at, is_active FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user query: %w", err)
	}
	return &u, nil
}
