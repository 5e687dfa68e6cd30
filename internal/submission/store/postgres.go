package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"supplierflow/internal/matcher"
	"supplierflow/internal/submission/models"
	id "supplierflow/pkg/domain"
	"supplierflow/pkg/platform/sentinel"
	txcontext "supplierflow/pkg/platform/tx"
)

// Postgres stores snapshots as JSONB next to the columns used for filtering.
// It works with any database/sql driver for Postgres (lib/pq or pgx stdlib).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, sub *models.Submission) error {
	snapshot, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	query := `
		INSERT INTO submissions (id, version, status, stage, outcome_route, submitted_by, supplier_name, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		sub.Version,
		string(sub.Status),
		string(sub.Stage),
		string(sub.OutcomeRoute),
		sub.SubmittedBy,
		sub.RequesterFields.SupplierName(),
		snapshot,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("submission %s: %w", sub.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	var snapshot []byte
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT snapshot FROM submissions WHERE id = $1`, uuid.UUID(subID)).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return decodeSnapshot(snapshot)
}

// Save writes sub if the stored version is still expectedVersion.
func (s *Postgres) Save(ctx context.Context, sub *models.Submission, expectedVersion int) error {
	snapshot, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	query := `
		UPDATE submissions
		SET version = $2, status = $3, stage = $4, outcome_route = $5, supplier_name = $6, snapshot = $7, updated_at = $8
		WHERE id = $1 AND version = $9
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(sub.ID),
		sub.Version,
		string(sub.Status),
		string(sub.Stage),
		string(sub.OutcomeRoute),
		sub.RequesterFields.SupplierName(),
		snapshot,
		sub.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	err = s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, uuid.UUID(sub.ID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("submission %s moved past version %d: %w", sub.ID, expectedVersion, sentinel.ErrConflict)
}

// List returns matching snapshots in creation order.
func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]*models.Submission, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Stage != "" {
		args = append(args, string(filter.Stage))
		where = append(where, fmt.Sprintf("stage = $%d", len(args)))
	}
	if filter.SubmittedBy != "" {
		args = append(args, filter.SubmittedBy)
		where = append(where, fmt.Sprintf("submitted_by = $%d", len(args)))
	}

	query := "SELECT snapshot FROM submissions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub, err := decodeSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// AppendIndex records one transition. Replays of the same version are
// ignored.
func (s *Postgres) AppendIndex(ctx context.Context, entry models.IndexEntry) error {
	query := `
		INSERT INTO submission_index (submission_id, version, status, stage, submitted_by, submission_date, supplier_name, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (submission_id, version) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		entry.Version,
		string(entry.Status),
		string(entry.Stage),
		entry.SubmittedBy,
		entry.SubmissionDate,
		entry.SupplierName,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert index entry: %w", err)
	}
	return nil
}

func (s *Postgres) Index(ctx context.Context, subID id.SubmissionID) ([]models.IndexEntry, error) {
	query := `
		SELECT version, status, stage, submitted_by, submission_date, supplier_name, recorded_at
		FROM submission_index
		WHERE submission_id = $1
		ORDER BY version
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(subID))
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var out []models.IndexEntry
	for rows.Next() {
		var (
			entry          = models.IndexEntry{ID: subID}
			status, stage  string
			submissionDate sql.NullTime
		)
		if err := rows.Scan(&entry.Version, &status, &stage, &entry.SubmittedBy, &submissionDate, &entry.SupplierName, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan index entry: %w", err)
		}
		entry.Status = models.Status(status)
		entry.Stage = models.Stage(stage)
		if submissionDate.Valid {
			at := submissionDate.Time
			entry.SubmissionDate = &at
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index: %w", err)
	}
	return out, nil
}

// CompletedSuppliers returns the names of suppliers that finished
// onboarding.
func (s *Postgres) CompletedSuppliers(ctx context.Context) ([]matcher.Entry, error) {
	query := `
		SELECT id, supplier_name
		FROM submissions
		WHERE status = ANY($1) AND supplier_name <> ''
		ORDER BY created_at, id
	`
	completed := []string{string(models.StatusCompletedOracle), string(models.StatusCompletedPayroll)}
	rows, err := s.execer(ctx).QueryContext(ctx, query, pq.Array(completed))
	if err != nil {
		return nil, fmt.Errorf("query completed suppliers: %w", err)
	}
	defer rows.Close()

	var out []matcher.Entry
	for rows.Next() {
		var (
			subID uuid.UUID
			name  string
		)
		if err := rows.Scan(&subID, &name); err != nil {
			return nil, fmt.Errorf("scan completed supplier: %w", err)
		}
		out = append(out, matcher.Entry{Name: name, Reference: subID.String()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed suppliers: %w", err)
	}
	return out, nil
}

func decodeSnapshot(raw []byte) (*models.Submission, error) {
	var sub models.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode submission snapshot: %w", err)
	}
	return &sub, nil
}
