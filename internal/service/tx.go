package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/repository/base"
)

// Clock returns the current instant; tests inject a fixed one.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

var (
	readWrite = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	// snapshot gives every read of a statistics call the same view.
	snapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// unitOfWork runs fn against repositories bound to one transaction. The
// transaction rolls back when fn fails or ctx is cancelled.
type unitOfWork struct {
	pool base.Pool
}

func (u unitOfWork) run(ctx context.Context, opts pgx.TxOptions, fn func(st *repository.Store) error) error {
	tx, err := u.pool.BeginTx(ctx, opts)
	if err != nil {
		return base.Classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(repository.NewStore(tx)); err != nil {
		return base.Classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return base.Classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// write never retries.
func (u unitOfWork) write(ctx context.Context, fn func(st *repository.Store) error) error {
	return u.run(ctx, readWrite, fn)
}

// read retries once on a transient failure.
func (u unitOfWork) read(ctx context.Context, fn func(st *repository.Store) error) error {
	return base.RetryRead(ctx, func(ctx context.Context) error {
		return u.run(ctx, snapshot, fn)
	})
}
