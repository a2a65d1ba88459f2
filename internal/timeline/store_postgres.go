package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
	"sampletrack/pkg/platform/tx"
)

// PostgresStore keeps events in timeline_events. The (sample_id, sequence)
// unique index enforces the single-writer guarantee at the storage layer.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, ev *Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	query := `
		INSERT INTO timeline_events (id, sample_id, sequence, type, impact, occurred_at, recorded_at, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(ev.ID),
		uuid.UUID(ev.SampleID),
		ev.Sequence,
		string(ev.Type),
		string(ev.Impact),
		ev.OccurredAt,
		ev.RecordedAt,
		doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastSequence(ctx context.Context, sampleID id.SampleID) (int64, error) {
	var seq int64
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM timeline_events WHERE sample_id = $1`,
		uuid.UUID(sampleID),
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("select last sequence: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) ListSince(ctx context.Context, sampleID id.SampleID, after int64, limit int) ([]Event, error) {
	query := `SELECT doc FROM timeline_events
		WHERE sample_id = $1 AND sequence > $2
		ORDER BY sequence ASC`
	args := []any{uuid.UUID(sampleID), after}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev Event
		if err := json.Unmarshal(doc, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
