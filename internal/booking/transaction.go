package booking

import (
	"context"
	"database/sql"
)

// TxBeginner starts database transactions; *sql.DB satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// BookingTransaction wraps the single SQL transaction that spans the
// member, session and reservation writes of one engine operation.
// Either Commit runs and every write becomes visible together, or
// Rollback discards them all.  Hooks registered with AfterCommit run only
// after a successful commit, in registration order.
type BookingTransaction struct {
	tx    *sql.Tx
	done  bool
	hooks []func()
}

// Begin opens a BookingTransaction.
func Begin(ctx context.Context, db TxBeginner) (*BookingTransaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &BookingTransaction{tx: tx}, nil
}

// Tx is the transaction every repository call of the operation must use.
func (b *BookingTransaction) Tx() *sql.Tx { return b.tx }

// AfterCommit registers fn to run once the transaction has committed.
func (b *BookingTransaction) AfterCommit(fn func()) { b.hooks = append(b.hooks, fn) }

// Commit commits the transaction and then runs the after-commit hooks.
func (b *BookingTransaction) Commit() error {
	if b.done {
		return sql.ErrTxDone
	}
	b.done = true
	if err := b.tx.Commit(); err != nil {
		return err
	}
	for _, fn := range b.hooks {
		fn()
	}
	return nil
}

// Rollback aborts the transaction.  It is a no-op after Commit or a
// previous Rollback, so it can always be deferred.
func (b *BookingTransaction) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}
