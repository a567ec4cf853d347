package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

const reliableExecMaxRetries = 5

type permanent interface {
	IsPermanent() bool
}

func isPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p) && p.IsPermanent()
}

func retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.WithContext(backoff.WithMaxRetries(b, reliableExecMaxRetries), ctx)
}

// ReliableExec acquires a pool connection and runs f, retrying with exponential
// backoff. Each attempt gets its own tryTimeout. Errors implementing IsPermanent stop retries.
func ReliableExec(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, conn *pgxpool.Conn) error) error {
	logger := zerolog.Ctx(ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		tryCtx, cancel := context.WithTimeout(ctx, tryTimeout)
		defer cancel()

		conn, err := pool.Acquire(tryCtx)
		if err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("error acquiring connection")
			return fmt.Errorf("error in pool.Acquire: %w", err)
		}
		defer conn.Release()

		err = f(tryCtx, conn)
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		if err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("reliable exec attempt failed")
		}
		return err
	}, retryPolicy(ctx))
}

// ReliableExecInTx runs f inside a transaction, using the CockroachDB client-side
// retry loop for serialization failures and backoff for everything else.
func ReliableExecInTx(ctx context.Context, pool *pgxpool.Pool, tryTimeout time.Duration, f func(ctx context.Context, tx pgx.Tx) error) error {
	return backoff.Retry(func() error {
		tryCtx, cancel := context.WithTimeout(ctx, tryTimeout)
		defer cancel()

		err := crdbpgx.ExecuteTx(tryCtx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return f(tryCtx, tx)
		})
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, retryPolicy(ctx))
}
