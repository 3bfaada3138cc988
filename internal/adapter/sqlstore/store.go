// Package sqlstore persists sensor samples in Postgres or MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-forecast-service/internal/domain"
	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	_ "github.com/lib/pq"              // registers "postgres"
)

const (
	insertSampleSQL = `INSERT INTO sensor_data (timestamp, temperature, humidity, pressure) VALUES (?, ?, ?, ?)`
	queryRangeSQL   = `SELECT timestamp, temperature, humidity, pressure FROM sensor_data WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`
	recentAvgSQL    = `SELECT COUNT(*), AVG(temperature), AVG(humidity) FROM sensor_data WHERE timestamp >= ?`
	latestSQL       = `SELECT timestamp, temperature, humidity, pressure FROM sensor_data ORDER BY timestamp DESC LIMIT 1`
)

// Store is a database/sql backed sample store.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

// Open connects to the database for driver, verifies connectivity and
// applies pending schema migrations.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	dsn, err = d.normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeError("ping", err)
	}
	if err := migrateUp(db, d); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sample store ready", "driver", d.name)
	return newStore(db, d, logger), nil
}

func newStore(db *sql.DB, d dialect, logger *slog.Logger) *Store {
	return &Store{db: db, dialect: d, logger: logger}
}

// InsertSamples writes the batch in a single transaction.
func (s *Store) InsertSamples(ctx context.Context, samples []domain.Sample) (err error) {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(insertSampleSQL))
	if err != nil {
		return storeError("prepare insert", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		var pressure sql.NullFloat64
		if smp.Pressure != nil {
			pressure = sql.NullFloat64{Float64: *smp.Pressure, Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, smp.Timestamp.UTC(), smp.Temperature, smp.Humidity, pressure); err != nil {
			return storeError("insert", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return storeError("commit", err)
	}
	return nil
}

// QueryRange returns samples with from <= timestamp <= to, oldest first.
func (s *Store) QueryRange(ctx context.Context, from, to time.Time) ([]domain.Sample, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(queryRangeSQL), from.UTC(), to.UTC())
	if err != nil {
		return nil, storeError("query range", err)
	}
	defer rows.Close()

	samples := []domain.Sample{}
	for rows.Next() {
		smp, err := scanSample(rows)
		if err != nil {
			return nil, storeError("scan sample", err)
		}
		samples = append(samples, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("query range", err)
	}
	return samples, nil
}

// QueryRecentAverage averages samples taken at or after since.
func (s *Store) QueryRecentAverage(ctx context.Context, since time.Time) (domain.RecentAverage, bool, error) {
	var (
		count       int
		temperature sql.NullFloat64
		humidity    sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(recentAvgSQL), since.UTC()).Scan(&count, &temperature, &humidity)
	if err != nil {
		return domain.RecentAverage{}, false, storeError("recent average", err)
	}
	if count == 0 || !temperature.Valid {
		return domain.RecentAverage{}, false, nil
	}
	return domain.RecentAverage{
		AvgTemperature: temperature.Float64,
		AvgHumidity:    humidity.Float64,
		Samples:        count,
	}, true, nil
}

// Latest returns the newest sample.
func (s *Store) Latest(ctx context.Context) (domain.Sample, bool, error) {
	smp, err := scanSample(s.db.QueryRowContext(ctx, latestSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Sample{}, false, nil
	}
	if err != nil {
		return domain.Sample{}, false, storeError("latest sample", err)
	}
	return smp, true, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSample(row scanner) (domain.Sample, error) {
	var (
		smp      domain.Sample
		pressure sql.NullFloat64
	)
	if err := row.Scan(&smp.Timestamp, &smp.Temperature, &smp.Humidity, &pressure); err != nil {
		return domain.Sample{}, err
	}
	smp.Timestamp = smp.Timestamp.UTC()
	if pressure.Valid {
		p := pressure.Float64
		smp.Pressure = &p
	}
	return smp, nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
