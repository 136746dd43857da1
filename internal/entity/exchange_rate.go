package entity

import (
	"fmt"
	"time"

	"nbp-rates-service/internal/apperrors"
	"nbp-rates-service/internal/calendar"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRate is an immutable cached quote of one currency against PLN for a
// single business date.
type ExchangeRate struct {
	ID             uuid.UUID       `db:"id"`
	CurrencyCodeID uuid.UUID       `db:"currency_code_id"`
	CurrencyCode   string          `db:"iso_code"`
	BuyingRate     decimal.Decimal `db:"buying_rate"`
	SellingRate    decimal.Decimal `db:"selling_rate"`
	EffectiveDate  time.Time       `db:"effective_date"`
}

func NewExchangeRate(currency *CurrencyCode, buyingRate, sellingRate decimal.Decimal, effectiveDate time.Time) (*ExchangeRate, error) {
	if buyingRate.IsNegative() || sellingRate.IsNegative() {
		return nil, apperrors.NewDomainError("Rate must be greater or equal to 0.")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate exchange rate id: %w", err)
	}

	return &ExchangeRate{
		ID:             id,
		CurrencyCodeID: currency.ID,
		CurrencyCode:   currency.IsoCode,
		BuyingRate:     buyingRate,
		SellingRate:    sellingRate,
		EffectiveDate:  calendar.Date(effectiveDate),
	}, nil
}

type ExchangeRateQuery struct {
	CurrencyCode  string
	EffectiveDate time.Time
}

// ExchangeRateResult always carries the adjusted business date, which may
// precede the requested one.
type ExchangeRateResult struct {
	CurrencyCode  string
	BuyingRate    decimal.Decimal
	SellingRate   decimal.Decimal
	EffectiveDate time.Time
}

func (r *ExchangeRate) ToResult() *ExchangeRateResult {
	return &ExchangeRateResult{
		CurrencyCode:  r.CurrencyCode,
		BuyingRate:    r.BuyingRate,
		SellingRate:   r.SellingRate,
		EffectiveDate: r.EffectiveDate,
	}
}
