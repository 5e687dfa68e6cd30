package service

import (
	"context"
	"database/sql"
	"time"

	dErrors "supplierflow/pkg/domain-errors"
	txcontext "supplierflow/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs each unit of work in one SQL transaction carried on the
// context, which the Postgres stores pick up.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return txcontext.Run(ctx, t.db, fn)
}
