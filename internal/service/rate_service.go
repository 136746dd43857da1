package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nbp-rates-service/internal/adapter/nbp"
	"nbp-rates-service/internal/adapter/postgres"
	"nbp-rates-service/internal/apperrors"
	"nbp-rates-service/internal/calendar"
	"nbp-rates-service/internal/entity"
	"nbp-rates-service/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type RateService struct {
	db      postgres.Transactor
	nbp     nbp.RateClient
	metrics *metrics.RateMetrics
	flights singleflight.Group
	logger  *logrus.Logger
}

func NewRateService(db postgres.Transactor, nbpClient nbp.RateClient, m *metrics.RateMetrics, logger *logrus.Logger) *RateService {
	return &RateService{
		db:      db,
		nbp:     nbpClient,
		metrics: m,
		logger:  logger,
	}
}

// Resolve returns the rate of currencyCode for the business date on or before
// date, reading through the cache into NBP. The input is expected to be
// validated already.
func (s *RateService) Resolve(ctx context.Context, currencyCode string, date time.Time) (*entity.ExchangeRateResult, error) {
	started := time.Now()
	result, err := s.resolve(ctx, currencyCode, date)
	s.metrics.RecordResolve(outcome(err), started)
	return result, err
}

func (s *RateService) resolve(ctx context.Context, currencyCode string, date time.Time) (*entity.ExchangeRateResult, error) {
	currency, err := s.db.Store().Currencies().GetByCode(ctx, currencyCode)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			s.logger.Warnf("Unknown currency code %s", currencyCode)
			return nil, apperrors.NewNotFoundError(
				fmt.Sprintf("Currency code is invalid for CurrencyCode=%s.", currencyCode), err)
		}
		return nil, fmt.Errorf("get currency code: %w", err)
	}

	businessDate := calendar.Adjust(date)
	if !businessDate.Equal(calendar.Date(date)) {
		s.logger.Debugf("Adjusted %s to business date %s", date.Format(time.DateOnly), businessDate.Format(time.DateOnly))
	}

	key := currency.IsoCode + "/" + businessDate.Format(time.DateOnly)
	for {
		ch := s.flights.DoChan(key, func() (interface{}, error) {
			return s.readThrough(ctx, currency, businessDate)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// the caller that led the flight went away; ours is still alive
				if res.Shared && apperrors.IsCancelled(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			return res.Val.(*entity.ExchangeRate).ToResult(), nil
		}
	}
}

// readThrough serves the rate from the cache or fetches, validates and stores
// it in one transaction.
func (s *RateService) readThrough(ctx context.Context, currency *entity.CurrencyCode, businessDate time.Time) (*entity.ExchangeRate, error) {
	log := s.logger.WithFields(logrus.Fields{
		"currency_code":  currency.IsoCode,
		"effective_date": businessDate.Format(time.DateOnly),
	})

	var rate *entity.ExchangeRate
	err := s.db.InTx(ctx, func(ctx context.Context, store postgres.Store) error {
		cached, err := store.Rates().Get(ctx, currency.ID, businessDate)
		if err == nil {
			s.metrics.RecordCacheHit()
			log.Debug("Exchange rate served from cache")
			rate = cached
			return nil
		}
		if !errors.Is(err, postgres.ErrNotFound) {
			return fmt.Errorf("get cached exchange rate: %w", err)
		}
		s.metrics.RecordCacheMiss()

		quote, err := s.nbp.FetchRate(ctx, currency.IsoCode, businessDate)
		if err != nil {
			s.metrics.RecordUpstreamFetch("error")
			return err
		}
		s.metrics.RecordUpstreamFetch("success")

		fresh, err := entity.NewExchangeRate(currency, quote.Bid, quote.Ask, businessDate)
		if err != nil {
			log.WithError(err).Warn("NBP returned an invalid rate")
			return err
		}

		stored, err := store.Rates().Put(ctx, fresh)
		if err != nil {
			return fmt.Errorf("store exchange rate: %w", err)
		}
		rate = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rate, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if apperrors.IsCancelled(err) {
		return "cancelled"
	}
	if kind, mixed, ok := apperrors.KindOf(err); ok && !mixed {
		return kind.String()
	}
	return "error"
}
