package app

import (
	"context"
	"fmt"

	"stockTrader/internal/ports"
)

// WithinTx runs fn inside a store transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
func WithinTx(ctx context.Context, store ports.LedgerStore, fn func(ctx context.Context, tx ports.LedgerTx) error) (err error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // re-throw panic after Rollback
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
