package sqlstore

import (
	"context"

	"github.com/uptrace/bun"
)

type txContextKey struct{}

// TxRunner runs a function inside one bun transaction. The transaction
// rides along in the context so every store method called from the
// function joins it.
type TxRunner struct {
	db *bun.DB
}

func NewTxRunner(db *bun.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.db == nil {
		return errStoreNotConfigured("transaction runner")
	}
	if _, ok := ctx.Value(txContextKey{}).(bun.Tx); ok {
		// Already inside a transaction; nested calls join it.
		return fn(ctx)
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// conn returns the ambient transaction when one is in flight, the bare
// connection otherwise.
func conn(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := ctx.Value(txContextKey{}).(bun.Tx); ok {
		return tx
	}
	return db
}
