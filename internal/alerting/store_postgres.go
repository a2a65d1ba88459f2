package alerting

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "sampletrack/pkg/domain"
	"sampletrack/pkg/platform/sentinel"
	"sampletrack/pkg/platform/tx"
)

// PostgresStore keeps alerts in tracking_alerts and thresholds in
// sample_thresholds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const alertColumns = `id, sample_id, type, severity, message, value, unit, reading_id, required_actions,
	raised_at, acknowledged, acknowledged_at, acknowledged_by, resolved, resolved_at, resolved_by, resolution_note`

// selectAlertColumns reads required_actions in its text form so pq.Array can
// scan it regardless of the driver's wire format.
const selectAlertColumns = `id, sample_id, type, severity, message, value, unit, reading_id, required_actions::text,
	raised_at, acknowledged, acknowledged_at, acknowledged_by, resolved, resolved_at, resolved_by, resolution_note`

func (s *PostgresStore) Create(ctx context.Context, a *Alert) error {
	query := `INSERT INTO tracking_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.ID),
		uuid.UUID(a.SampleID),
		string(a.Type),
		string(a.Severity),
		a.Message,
		a.Value,
		a.Unit,
		readingIDArg(a.ReadingID),
		pq.Array(a.RequiredActions),
		a.RaisedAt,
		a.Acknowledged,
		a.AcknowledgedAt,
		a.AcknowledgedBy,
		a.Resolved,
		a.ResolvedAt,
		a.ResolvedBy,
		a.ResolutionNote,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Update writes the mutable lifecycle columns. A resolved row is never
// reopened.
func (s *PostgresStore) Update(ctx context.Context, a *Alert) error {
	query := `
		UPDATE tracking_alerts
		SET acknowledged = $3, acknowledged_at = $4, acknowledged_by = $5,
		    resolved = $6, resolved_at = $7, resolved_by = $8, resolution_note = $9
		WHERE sample_id = $1 AND id = $2 AND NOT (resolved AND NOT $6)
	`
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(a.SampleID),
		uuid.UUID(a.ID),
		a.Acknowledged,
		a.AcknowledgedAt,
		a.AcknowledgedBy,
		a.Resolved,
		a.ResolvedAt,
		a.ResolvedBy,
		a.ResolutionNote,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update alert rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sampleID id.SampleID, alertID id.AlertID) (*Alert, error) {
	query := `SELECT ` + selectAlertColumns + ` FROM tracking_alerts WHERE sample_id = $1 AND id = $2`
	a, err := scanAlert(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(sampleID), uuid.UUID(alertID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find alert: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListBySample(ctx context.Context, sampleID id.SampleID, openOnly bool) ([]*Alert, error) {
	query := `SELECT ` + selectAlertColumns + ` FROM tracking_alerts WHERE sample_id = $1`
	if openOnly {
		query += ` AND NOT resolved`
	}
	query += ` ORDER BY raised_at DESC, id`
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(sampleID))
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetThresholds(ctx context.Context, sampleID id.SampleID) (*Thresholds, error) {
	var doc []byte
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT doc FROM sample_thresholds WHERE sample_id = $1`, uuid.UUID(sampleID),
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find thresholds: %w", err)
	}
	var t Thresholds
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("unmarshal thresholds: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) PutThresholds(ctx context.Context, sampleID id.SampleID, t Thresholds) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	_, err = tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO sample_thresholds (sample_id, doc, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sample_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, uuid.UUID(sampleID), doc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert thresholds: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var (
		a                 Alert
		alertID, smpID    uuid.UUID
		typ, severity     string
		value             sql.NullFloat64
		readingID         uuid.NullUUID
		actions           []string
		ackAt, resolvedAt sql.NullTime
	)
	err := row.Scan(&alertID, &smpID, &typ, &severity, &a.Message, &value, &a.Unit, &readingID,
		pq.Array(&actions), &a.RaisedAt, &a.Acknowledged, &ackAt, &a.AcknowledgedBy,
		&a.Resolved, &resolvedAt, &a.ResolvedBy, &a.ResolutionNote)
	if err != nil {
		return nil, err
	}
	a.ID = id.AlertID(alertID)
	a.SampleID = id.SampleID(smpID)
	a.Type = Type(typ)
	a.Severity = Severity(severity)
	a.RequiredActions = actions
	a.RaisedAt = a.RaisedAt.UTC()
	if value.Valid {
		v := value.Float64
		a.Value = &v
	}
	if readingID.Valid {
		r := id.ReadingID(readingID.UUID)
		a.ReadingID = &r
	}
	if ackAt.Valid {
		t := ackAt.Time.UTC()
		a.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		a.ResolvedAt = &t
	}
	return &a, nil
}

func readingIDArg(r *id.ReadingID) any {
	if r == nil {
		return nil
	}
	return uuid.UUID(*r)
}
