package service

import (
	"context"
	"time"

	"nbp-rates-service/internal/entity"
)

type RateResolver interface {
	Resolve(ctx context.Context, currencyCode string, date time.Time) (*entity.ExchangeRateResult, error)
}
