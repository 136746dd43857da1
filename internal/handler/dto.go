package handler

import (
	"time"

	"nbp-rates-service/internal/entity"

	"github.com/shopspring/decimal"
)

type ExchangeRateResponse struct {
	CurrencyCode  string          `json:"currencyCode"`
	BuyingRate    decimal.Decimal `json:"buyingRate"`
	SellingRate   decimal.Decimal `json:"sellingRate"`
	EffectiveDate string          `json:"effectiveDate"`
}

func toExchangeRateResponse(r *entity.ExchangeRateResult) ExchangeRateResponse {
	return ExchangeRateResponse{
		CurrencyCode:  r.CurrencyCode,
		BuyingRate:    r.BuyingRate,
		SellingRate:   r.SellingRate,
		EffectiveDate: r.EffectiveDate.Format(time.DateOnly),
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}
