package sample

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

// PostgresStore persists samples as a JSONB document keyed by id, with status
// and version lifted into columns for filtering and compare-and-swap updates.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, smp *Sample) error {
	doc, err := json.Marshal(smp)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	query := `
		INSERT INTO samples (id, sample_number, status, version, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(smp.ID),
		smp.SampleNumber,
		string(smp.Status),
		smp.Version,
		doc,
		smp.CreatedAt,
		smp.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sampleID id.SampleID) (*Sample, error) {
	var doc []byte
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT doc FROM samples WHERE id = $1`, uuid.UUID(sampleID),
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sample: %w", err)
	}
	var smp Sample
	if err := json.Unmarshal(doc, &smp); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return &smp, nil
}

// Update writes smp only when the stored version equals expectedVersion.
func (s *PostgresStore) Update(ctx context.Context, smp *Sample, expectedVersion int64) error {
	doc, err := json.Marshal(smp)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	query := `
		UPDATE samples
		SET status = $2, version = $3, doc = $4, updated_at = $5
		WHERE id = $1 AND version = $6
	`
	exec := tx.Exec(ctx, s.db)
	res, err := exec.ExecContext(ctx, query,
		uuid.UUID(smp.ID),
		string(smp.Status),
		smp.Version,
		doc,
		smp.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM samples WHERE id = $1)`, uuid.UUID(smp.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}
