package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"nbp-rates-service/internal/apperrors"
	"nbp-rates-service/internal/entity"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRateResolver struct {
	mock.Mock
}

func (m *mockRateResolver) Resolve(ctx context.Context, currencyCode string, date time.Time) (*entity.ExchangeRateResult, error) {
	args := m.Called(ctx, currencyCode, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ExchangeRateResult), args.Error(1)
}

// 2025-01-20 10:30 in Warsaw
var fixedNow = time.Date(2025, 1, 20, 10, 30, 0, 0, time.FixedZone("CET", 3600))

func setupTestUsecase(warmUp ...string) (*ExchangeRateUsecase, *mockRateResolver, *test.Hook) {
	resolver := new(mockRateResolver)
	logger, hook := test.NewNullLogger()
	uc := NewExchangeRateUsecase(resolver, warmUp, logger).WithClock(func() time.Time { return fixedNow })
	return uc, resolver, hook
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGetExchangeRate_Success(t *testing.T) {
	ctx := context.Background()
	uc, resolver, _ := setupTestUsecase()

	expected := &entity.ExchangeRateResult{
		CurrencyCode:  "USD",
		BuyingRate:    decimal.RequireFromString("4.05"),
		SellingRate:   decimal.RequireFromString("4.13"),
		EffectiveDate: date(2025, 1, 17),
	}
	resolver.On("Resolve", ctx, "USD", date(2025, 1, 19)).Return(expected, nil)

	result, err := uc.GetExchangeRate(ctx, entity.ExchangeRateQuery{CurrencyCode: "USD", EffectiveDate: date(2025, 1, 19)})
	require.NoError(t, err)
	assert.Equal(t, expected, result)
	resolver.AssertExpectations(t)
}

func TestGetExchangeRate_TodayIsAllowed(t *testing.T) {
	ctx := context.Background()
	uc, resolver, _ := setupTestUsecase()

	resolver.On("Resolve", ctx, "EUR", date(2025, 1, 20)).Return(&entity.ExchangeRateResult{CurrencyCode: "EUR"}, nil)

	_, err := uc.GetExchangeRate(ctx, entity.ExchangeRateQuery{CurrencyCode: "EUR", EffectiveDate: date(2025, 1, 20)})
	assert.NoError(t, err)
	resolver.AssertExpectations(t)
}

func TestGetExchangeRate_ValidationFailuresSkipResolver(t *testing.T) {
	tests := []struct {
		name    string
		query   entity.ExchangeRateQuery
		message string
	}{
		{
			name:    "empty code",
			query:   entity.ExchangeRateQuery{CurrencyCode: "", EffectiveDate: date(2025, 1, 17)},
			message: "CurrencyCode: Must not be empty.",
		},
		{
			name:    "short code",
			query:   entity.ExchangeRateQuery{CurrencyCode: "US", EffectiveDate: date(2025, 1, 17)},
			message: "CurrencyCode: Must be 3 characters.",
		},
		{
			name:    "long code",
			query:   entity.ExchangeRateQuery{CurrencyCode: "USDT", EffectiveDate: date(2025, 1, 17)},
			message: "CurrencyCode: Must be 3 characters.",
		},
		{
			name:    "future date",
			query:   entity.ExchangeRateQuery{CurrencyCode: "USD", EffectiveDate: date(2025, 1, 21)},
			message: "EffectiveDate: Must not be in the future.",
		},
		{
			name:    "missing date",
			query:   entity.ExchangeRateQuery{CurrencyCode: "USD"},
			message: "EffectiveDate: Must not be empty.",
		},
		{
			name:    "both invalid",
			query:   entity.ExchangeRateQuery{CurrencyCode: "US", EffectiveDate: date(2026, 1, 1)},
			message: "CurrencyCode: Must be 3 characters.\nEffectiveDate: Must not be in the future.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, resolver, _ := setupTestUsecase()

			result, err := uc.GetExchangeRate(context.Background(), tt.query)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.message, apperrors.Message(err))

			kind, mixed, ok := apperrors.KindOf(err)
			assert.True(t, ok)
			assert.False(t, mixed)
			assert.Equal(t, apperrors.KindValidation, kind)
			resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetExchangeRate_ResolverErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	uc, resolver, _ := setupTestUsecase()

	notFound := apperrors.NewNotFoundError("Currency code is invalid for CurrencyCode=QQQ.", nil)
	resolver.On("Resolve", ctx, "QQQ", date(2025, 1, 17)).Return(nil, notFound)

	_, err := uc.GetExchangeRate(ctx, entity.ExchangeRateQuery{CurrencyCode: "QQQ", EffectiveDate: date(2025, 1, 17)})
	assert.Same(t, notFound, err)
}

func TestWarmUp(t *testing.T) {
	ctx := context.Background()
	uc, resolver, _ := setupTestUsecase("USD", "EUR")

	today := date(2025, 1, 20)
	resolver.On("Resolve", ctx, "USD", today).Return(&entity.ExchangeRateResult{CurrencyCode: "USD"}, nil)
	resolver.On("Resolve", ctx, "EUR", today).Return(nil, errors.New("nbp down"))

	err := uc.WarmUp(ctx)
	assert.ErrorContains(t, err, "EUR: nbp down")
	resolver.AssertExpectations(t)
}
