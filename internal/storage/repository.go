package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertPriceSampleSQL = `INSERT INTO price_samples (
        hour_ts,
        price_c_per_kwh,
        avg_7d_c_per_kwh,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (hour_ts) DO UPDATE
    SET
        price_c_per_kwh  = EXCLUDED.price_c_per_kwh,
        avg_7d_c_per_kwh = EXCLUDED.avg_7d_c_per_kwh,
        status           = EXCLUDED.status,
        error            = EXCLUDED.error;`

	listSamplesBetweenSQL = `SELECT
        hour_ts,
        price_c_per_kwh,
        avg_7d_c_per_kwh,
        status,
        error,
        created_at
    FROM price_samples
    WHERE hour_ts >= $1
      AND hour_ts < $2
    ORDER BY hour_ts;`

	listRecentSamplesSQL = `SELECT
        hour_ts,
        price_c_per_kwh,
        avg_7d_c_per_kwh,
        status,
        error,
        created_at
    FROM price_samples
    ORDER BY hour_ts DESC
    LIMIT $1;`

	markSampleErroredSQL = `INSERT INTO price_samples (hour_ts, status, error)
    VALUES ($1, 'errored', $2)
    ON CONFLICT (hour_ts) DO UPDATE
    SET status = 'errored', error = EXCLUDED.error;`

	countSamplesSQL = `SELECT COUNT(*) FROM price_samples;`

	insertAlertSQL = `INSERT INTO alerts (
        sample_ts,
        device,
        kind,
        price_c_per_kwh,
        threshold_c_per_kwh,
        message
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (sample_ts, device) DO NOTHING;`

	listRecentAlertsSQL = `SELECT
        id,
        sample_ts,
        device,
        kind,
        price_c_per_kwh,
        threshold_c_per_kwh,
        message,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PriceSampleStore defines operations for price sample persistence.
type PriceSampleStore interface {
	UpsertPriceSample(ctx context.Context, sample PriceSampleRecord) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSampleRecord, error)
	ListRecentSamples(ctx context.Context, limit int) ([]PriceSampleRecord, error)
	MarkSampleErrored(ctx context.Context, hour time.Time, errMsg string) error
	CountSamples(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing and de-duplication.
type AlertStore interface {
	// InsertAlert records an emission. It reports inserted=false when an
	// alert for the same (hour, device) pair already exists, which callers
	// use as the notify-once-per-hour gate.
	InsertAlert(ctx context.Context, alert AlertRecord) (inserted bool, err error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to price samples and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertPriceSample persists or updates an hourly sample.
func (s *Store) UpsertPriceSample(ctx context.Context, sample PriceSampleRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var price, avg interface{}
	if sample.Price != nil {
		price = sample.Price.String()
	}
	if sample.Avg7d != nil {
		avg = sample.Avg7d.String()
	}

	var errMsg interface{}
	if sample.Error != nil {
		errMsg = *sample.Error
	}

	_, execErr := pool.Exec(ctx, upsertPriceSampleSQL,
		sample.Hour,
		price,
		avg,
		sample.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert price sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSampleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]PriceSampleRecord, 0)
	for rows.Next() {
		sample, scanErr := scanPriceSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentSamples lists the most recent samples ordered by descending hour.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]PriceSampleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]PriceSampleRecord, 0, limit)
	for rows.Next() {
		sample, scanErr := scanPriceSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// MarkSampleErrored records a failed hour, creating the row if needed.
func (s *Store) MarkSampleErrored(ctx context.Context, hour time.Time, errMsg string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, markSampleErroredSQL, hour, errMsg); execErr != nil {
		return fmt.Errorf("mark sample errored: %w", execErr)
	}
	return nil
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission. A second insert for the same
// (hour, device) pair is a silent no-op and reports inserted=false.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	cmdTag, execErr := pool.Exec(ctx, insertAlertSQL,
		alert.SampleTS,
		alert.Device,
		alert.Kind,
		alert.Price.String(),
		alert.Threshold.String(),
		alert.Message,
	)
	if execErr != nil {
		return false, fmt.Errorf("insert alert: %w", execErr)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var priceStr, thresholdStr string
		if err := rows.Scan(
			&rec.ID,
			&rec.SampleTS,
			&rec.Device,
			&rec.Kind,
			&priceStr,
			&thresholdStr,
			&rec.Message,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.Price, convErr = decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse alert price: %w", convErr)
		}
		rec.Threshold, convErr = decimal.NewFromString(thresholdStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse alert threshold: %w", convErr)
		}

		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanPriceSample(rows pgx.Rows) (PriceSampleRecord, error) {
	var (
		hour      time.Time
		priceStr  sql.NullString
		avgStr    sql.NullString
		status    string
		errMsg    sql.NullString
		createdAt time.Time
	)

	if err := rows.Scan(
		&hour,
		&priceStr,
		&avgStr,
		&status,
		&errMsg,
		&createdAt,
	); err != nil {
		return PriceSampleRecord{}, err
	}

	sample := PriceSampleRecord{
		Hour:      hour,
		Status:    status,
		CreatedAt: createdAt,
	}

	if priceStr.Valid {
		price, err := decimal.NewFromString(priceStr.String)
		if err != nil {
			return PriceSampleRecord{}, fmt.Errorf("parse price: %w", err)
		}
		sample.Price = &price
	}
	if avgStr.Valid {
		avg, err := decimal.NewFromString(avgStr.String)
		if err != nil {
			return PriceSampleRecord{}, fmt.Errorf("parse 7d average: %w", err)
		}
		sample.Avg7d = &avg
	}
	if errMsg.Valid {
		msg := errMsg.String
		sample.Error = &msg
	}

	return sample, nil
}
