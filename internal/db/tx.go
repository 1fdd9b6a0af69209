package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abre transações; implementado por *pgxpool.Pool.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executa uma função dentro de uma transação explicita.
// Qualquer erro devolvido por fn desfaz todas as escritas.
func WithTx(ctx context.Context, pool TxBeginner, fn func(pctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
