package nbp

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRatesPayload is the table C response of
// GET /exchangerates/rates/C/{code}/{date}/?format=json.
type ExchangeRatesPayload struct {
	Table    string `json:"table"`
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Rates    []Rate `json:"rates"`
}

type Rate struct {
	No            string          `json:"no"`
	EffectiveDate string          `json:"effectiveDate"`
	Bid           decimal.NullDecimal `json:"bid"`
	Ask           decimal.NullDecimal `json:"ask"`
}

// RateQuote is a single bid/ask pair taken from a validated payload.
type RateQuote struct {
	CurrencyCode  string
	Bid           decimal.Decimal
	Ask           decimal.Decimal
	EffectiveDate time.Time
}
