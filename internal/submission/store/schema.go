package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Schema creates the tables used by the Postgres stores. Statements are
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id            UUID PRIMARY KEY,
	version       INTEGER     NOT NULL,
	status        TEXT        NOT NULL,
	stage         TEXT        NOT NULL,
	outcome_route TEXT        NOT NULL DEFAULT '',
	submitted_by  TEXT        NOT NULL,
	supplier_name TEXT        NOT NULL DEFAULT '',
	snapshot      JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_status_idx ON submissions (status, created_at);

CREATE TABLE IF NOT EXISTS submission_index (
	seq             BIGSERIAL PRIMARY KEY,
	submission_id   UUID        NOT NULL,
	version         INTEGER     NOT NULL,
	status          TEXT        NOT NULL,
	stage           TEXT        NOT NULL,
	submitted_by    TEXT        NOT NULL,
	submission_date TIMESTAMPTZ NULL,
	supplier_name   TEXT        NOT NULL DEFAULT '',
	recorded_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (submission_id, version)
);

CREATE TABLE IF NOT EXISTS supplier_watchlist (
	name_key  TEXT PRIMARY KEY,
	name      TEXT        NOT NULL,
	reference TEXT        NOT NULL DEFAULT '',
	reason    TEXT        NOT NULL DEFAULT '',
	added_at  TIMESTAMPTZ NOT NULL
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// isUniqueViolation recognises duplicate key errors from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
