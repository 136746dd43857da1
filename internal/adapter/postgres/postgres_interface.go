package postgres

import (
	"context"
	"time"

	"nbp-rates-service/internal/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type CurrencyRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.CurrencyCode, error)
}

type ExchangeRateRepository interface {
	Get(ctx context.Context, currencyID uuid.UUID, effectiveDate time.Time) (*entity.ExchangeRate, error)
	Put(ctx context.Context, rate *entity.ExchangeRate) (*entity.ExchangeRate, error)
}

// Store groups the repositories bound to one connection or transaction.
type Store interface {
	Currencies() CurrencyRepository
	Rates() ExchangeRateRepository
}

// Transactor hands out stores. InTx runs fn against a store bound to a fresh
// transaction and commits only when fn succeeds.
type Transactor interface {
	Store() Store
	InTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}
