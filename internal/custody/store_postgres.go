package custody

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

// PostgresStore keeps records in custody_records. Hashes are lifted into
// columns for operators; verification always recomputes from doc.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec *Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal custody record: %w", err)
	}
	query := `
		INSERT INTO custody_records (id, sample_id, idx, previous_hash, integrity_hash, transferred_at, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		uuid.UUID(rec.SampleID),
		rec.Index,
		rec.PreviousHash,
		rec.IntegrityHash,
		rec.TransferredAt,
		doc,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert custody record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySample(ctx context.Context, sampleID id.SampleID) ([]*Record, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT doc FROM custody_records WHERE sample_id = $1 ORDER BY idx ASC`,
		uuid.UUID(sampleID),
	)
	if err != nil {
		return nil, fmt.Errorf("list custody records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan custody record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal custody record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
