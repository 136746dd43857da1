package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

var (
	psql        = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	ErrNotFound = errors.New("not found")
)

type store struct {
	currencies *CurrencyRepo
	rates      *ExchangeRateRepo
}

func (s *store) Currencies() CurrencyRepository { return s.currencies }

func (s *store) Rates() ExchangeRateRepository { return s.rates }

type PostgresRepo struct {
	pool   Pool
	logger *logrus.Logger
}

func NewPostgresRepo(pool Pool, logger *logrus.Logger) *PostgresRepo {
	return &PostgresRepo{
		pool:   pool,
		logger: logger,
	}
}

func (r *PostgresRepo) storeOn(q Querier) Store {
	return &store{
		currencies: NewCurrencyRepo(q, r.logger),
		rates:      NewExchangeRateRepo(q, r.logger),
	}
}

// Store returns repositories that run each statement on its own pooled connection.
func (r *PostgresRepo) Store() Store {
	return r.storeOn(r.pool)
}

// InTx runs fn inside one transaction. The transaction is rolled back when fn
// fails or panics, or when ctx is done before the commit.
func (r *PostgresRepo) InTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to begin transaction")
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.rollback(ctx, tx)
			panic(p)
		}
	}()

	if err := fn(ctx, r.storeOn(tx)); err != nil {
		r.rollback(ctx, tx)
		return err
	}

	if err := ctx.Err(); err != nil {
		r.rollback(ctx, tx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to commit tx")
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (r *PostgresRepo) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.WithError(err).Error("Failed to rollback tx")
	}
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
