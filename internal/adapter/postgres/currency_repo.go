package postgres

import (
	"context"
	"errors"
	"fmt"

	"nbp-rates-service/internal/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type CurrencyRepo struct {
	q      Querier
	logger *logrus.Logger
}

func NewCurrencyRepo(q Querier, logger *logrus.Logger) *CurrencyRepo {
	return &CurrencyRepo{
		q:      q,
		logger: logger,
	}
}

// GetByCode matches code exactly; "usd" does not find "USD".
func (r *CurrencyRepo) GetByCode(ctx context.Context, code string) (*entity.CurrencyCode, error) {
	r.logger.WithField("iso_code", code).Debug("Getting currency code")

	query, args, err := psql.
		Select("id", "iso_code").
		From("currency_codes").
		Where(sq.Eq{"iso_code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		r.logger.WithError(err).Error("Failed to build select query for currency code")
		return nil, fmt.Errorf("build select: %w", err)
	}

	var currency entity.CurrencyCode
	err = r.q.QueryRow(ctx, query, args...).Scan(&currency.ID, &currency.IsoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WithField("iso_code", code).Debug("Currency code not found in DB")
			return nil, ErrNotFound
		}
		r.logger.WithError(err).WithField("iso_code", code).Error("Failed to query currency code")
		return nil, fmt.Errorf("query currency code: %w", err)
	}

	return &currency, nil
}
