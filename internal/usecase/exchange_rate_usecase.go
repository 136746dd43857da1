package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nbp-rates-service/internal/apperrors"
	"nbp-rates-service/internal/calendar"
	"nbp-rates-service/internal/entity"
	"nbp-rates-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

type exchangeRateRequest struct {
	CurrencyCode  string    `validate:"required,len=3"`
	EffectiveDate time.Time `validate:"required,notfuture"`
}

var validationMessages = map[string]string{
	"required":  "Must not be empty.",
	"len":       "Must be 3 characters.",
	"notfuture": "Must not be in the future.",
}

type ExchangeRateUsecase struct {
	resolver    service.RateResolver
	validate    *validator.Validate
	now         func() time.Time
	warmUpCodes []string
	logger      *logrus.Logger
}

func NewExchangeRateUsecase(resolver service.RateResolver, warmUpCodes []string, logger *logrus.Logger) *ExchangeRateUsecase {
	uc := &ExchangeRateUsecase{
		resolver:    resolver,
		validate:    validator.New(),
		now:         time.Now,
		warmUpCodes: warmUpCodes,
		logger:      logger,
	}
	// registration only fails for empty tags or nil funcs
	_ = uc.validate.RegisterValidation("notfuture", uc.notInFuture)
	return uc
}

// WithClock replaces the wall clock used to decide what "today" is.
func (uc *ExchangeRateUsecase) WithClock(now func() time.Time) *ExchangeRateUsecase {
	uc.now = now
	return uc
}

func (uc *ExchangeRateUsecase) notInFuture(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !calendar.Date(date).After(calendar.Date(uc.now()))
}

func (uc *ExchangeRateUsecase) GetExchangeRate(ctx context.Context, query entity.ExchangeRateQuery) (*entity.ExchangeRateResult, error) {
	if err := uc.validateQuery(query); err != nil {
		uc.logger.WithError(err).Warnf("Rejected exchange rate query for %q", query.CurrencyCode)
		return nil, err
	}

	result, err := uc.resolver.Resolve(ctx, query.CurrencyCode, calendar.Date(query.EffectiveDate))
	if err != nil {
		return nil, err
	}

	uc.logger.WithFields(logrus.Fields{
		"currency_code":  result.CurrencyCode,
		"requested_date": query.EffectiveDate.Format(time.DateOnly),
		"effective_date": result.EffectiveDate.Format(time.DateOnly),
	}).Info("Resolved exchange rate")

	return result, nil
}

func (uc *ExchangeRateUsecase) validateQuery(query entity.ExchangeRateQuery) error {
	err := uc.validate.Struct(exchangeRateRequest{
		CurrencyCode:  query.CurrencyCode,
		EffectiveDate: query.EffectiveDate,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate query: %w", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := validationMessages[fe.Tag()]
		if !ok {
			msg = "Is invalid."
		}
		errs = append(errs, apperrors.NewValidationError(fe.Field()+": "+msg))
	}
	return apperrors.Combine(errs...)
}

// WarmUp resolves today's rate for every configured currency so the first
// requests of the day are served from the cache.
func (uc *ExchangeRateUsecase) WarmUp(ctx context.Context) error {
	today := calendar.Date(uc.now())
	uc.logger.Infof("Warming up %d exchange rates for %s", len(uc.warmUpCodes), today.Format(time.DateOnly))

	var errs error
	for _, code := range uc.warmUpCodes {
		if _, err := uc.GetExchangeRate(ctx, entity.ExchangeRateQuery{CurrencyCode: code, EffectiveDate: today}); err != nil {
			uc.logger.WithError(err).Warnf("Failed to warm up rate for %s", code)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", code, err))
		}
	}
	return errs
}
