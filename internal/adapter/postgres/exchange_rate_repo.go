package postgres

import (
	"context"
	"fmt"
	"time"

	"nbp-rates-service/internal/apperrors"
	"nbp-rates-service/internal/entity"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ExchangeRateRepo struct {
	q      Querier
	logger *logrus.Logger
}

func NewExchangeRateRepo(q Querier, logger *logrus.Logger) *ExchangeRateRepo {
	return &ExchangeRateRepo{
		q:      q,
		logger: logger,
	}
}

func selectExchangeRate(currencyID uuid.UUID, effectiveDate time.Time) sq.SelectBuilder {
	return psql.
		Select("er.id", "er.currency_code_id", "cc.iso_code", "er.buying_rate", "er.selling_rate", "er.effective_date").
		From("exchange_rates er").
		Join("currency_codes cc ON cc.id = er.currency_code_id").
		Where(sq.Eq{"er.currency_code_id": currencyID, "er.effective_date": effectiveDate}).
		Limit(2)
}

// Get returns the cached rate for the currency and business date. More than one
// matching row is reported as apperrors.ErrIntegrity instead of picking one.
func (r *ExchangeRateRepo) Get(ctx context.Context, currencyID uuid.UUID, effectiveDate time.Time) (*entity.ExchangeRate, error) {
	fields := logrus.Fields{"currency_code_id": currencyID, "effective_date": effectiveDate.Format(time.DateOnly)}
	r.logger.WithFields(fields).Debug("Getting cached exchange rate")

	query, args, err := selectExchangeRate(currencyID, effectiveDate).ToSql()
	if err != nil {
		r.logger.WithError(err).Error("Failed to build select query for exchange rate")
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).WithFields(fields).Error("Failed to query exchange rate")
		return nil, fmt.Errorf("query exchange rate: %w", err)
	}
	defer rows.Close()

	var found []entity.ExchangeRate
	for rows.Next() {
		var rate entity.ExchangeRate
		if err := rows.Scan(
			&rate.ID,
			&rate.CurrencyCodeID,
			&rate.CurrencyCode,
			&rate.BuyingRate,
			&rate.SellingRate,
			&rate.EffectiveDate,
		); err != nil {
			return nil, fmt.Errorf("scan exchange rate: %w", err)
		}
		found = append(found, rate)
	}
	if err := rows.Err(); err != nil {
		r.logger.WithError(err).WithFields(fields).Error("Failed to iterate exchange rates")
		return nil, fmt.Errorf("iterate exchange rates: %w", err)
	}

	switch len(found) {
	case 0:
		r.logger.WithFields(fields).Debug("Exchange rate not found in DB")
		return nil, ErrNotFound
	case 1:
		return &found[0], nil
	default:
		r.logger.WithFields(fields).Error("Multiple cached exchange rates for one business date")
		return nil, fmt.Errorf("%w: %d exchange rates for currency %s on %s",
			apperrors.ErrIntegrity, len(found), currencyID, effectiveDate.Format(time.DateOnly))
	}
}

// Put appends rate. If a concurrent writer already stored the same currency and
// date, the stored row is returned and rate is discarded.
func (r *ExchangeRateRepo) Put(ctx context.Context, rate *entity.ExchangeRate) (*entity.ExchangeRate, error) {
	fields := logrus.Fields{
		"currency_code":  rate.CurrencyCode,
		"effective_date": rate.EffectiveDate.Format(time.DateOnly),
	}

	query, args, err := psql.Insert("exchange_rates").
		Columns("id", "currency_code_id", "buying_rate", "selling_rate", "effective_date").
		Values(rate.ID, rate.CurrencyCodeID, rate.BuyingRate, rate.SellingRate, rate.EffectiveDate).
		Suffix("ON CONFLICT (currency_code_id, effective_date) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert for %s: %w", rate.CurrencyCode, err)
	}

	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).WithFields(fields).Error("Failed to insert exchange rate")
		return nil, fmt.Errorf("insert exchange rate: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.WithFields(fields).Warn("Exchange rate already stored by a concurrent request")
		return r.Get(ctx, rate.CurrencyCodeID, rate.EffectiveDate)
	}

	r.logger.WithFields(fields).Info("Stored exchange rate")
	return rate, nil
}
