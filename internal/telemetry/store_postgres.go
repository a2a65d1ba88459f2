package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
	"sampletrack/pkg/platform/tx"
)

// PostgresStore persists readings in the telemetry_readings table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const readingColumns = `id, sample_id, type, value, unit, lat, lng, address, device_id, source, measured_at, received_at, within_range`

func (s *PostgresStore) Append(ctx context.Context, r *Reading) error {
	var lat, lng sql.NullFloat64
	var address sql.NullString
	if r.Location != nil {
		lat = sql.NullFloat64{Float64: r.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: r.Location.Lng, Valid: true}
		address = sql.NullString{String: r.Location.Address, Valid: r.Location.Address != ""}
	}
	query := `INSERT INTO telemetry_readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		uuid.UUID(r.SampleID),
		string(r.Type),
		r.Value,
		r.Unit,
		lat,
		lng,
		address,
		r.DeviceID,
		string(r.Source),
		r.MeasuredAt,
		r.ReceivedAt,
		r.WithinRange,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, sampleID id.SampleID, typ Type) (*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM telemetry_readings
		WHERE sample_id = $1 AND type = $2
		ORDER BY received_at DESC, measured_at DESC
		LIMIT 1`
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(sampleID), string(typ))
	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest reading: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) LatestLocation(ctx context.Context, sampleID id.SampleID) (*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM telemetry_readings
		WHERE sample_id = $1 AND lat IS NOT NULL
		ORDER BY received_at DESC, measured_at DESC
		LIMIT 1`
	row := tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(sampleID))
	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find latest location: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListBySample(ctx context.Context, sampleID id.SampleID, limit int) ([]*Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM telemetry_readings
		WHERE sample_id = $1
		ORDER BY received_at DESC, measured_at DESC`
	args := []any{uuid.UUID(sampleID)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var out []*Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (*Reading, error) {
	var (
		r                Reading
		readingID, smpID uuid.UUID
		typ, source      string
		lat, lng         sql.NullFloat64
		address          sql.NullString
	)
	if err := row.Scan(&readingID, &smpID, &typ, &r.Value, &r.Unit, &lat, &lng, &address,
		&r.DeviceID, &source, &r.MeasuredAt, &r.ReceivedAt, &r.WithinRange); err != nil {
		return nil, err
	}
	r.ID = id.ReadingID(readingID)
	r.SampleID = id.SampleID(smpID)
	r.Type = Type(typ)
	r.Source = Source(source)
	if lat.Valid && lng.Valid {
		r.Location = &Location{Lat: lat.Float64, Lng: lng.Float64, Address: address.String}
	}
	r.MeasuredAt = r.MeasuredAt.UTC()
	r.ReceivedAt = r.ReceivedAt.UTC()
	return &r, nil
}
