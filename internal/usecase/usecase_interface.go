package usecase

import (
	"context"

	"nbp-rates-service/internal/entity"
)

type RateUsecase interface {
	GetExchangeRate(ctx context.Context, query entity.ExchangeRateQuery) (*entity.ExchangeRateResult, error)
	WarmUp(ctx context.Context) error
}
