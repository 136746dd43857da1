package nbp

import (
	"context"
	"time"
)

type RateClient interface {
	FetchRate(ctx context.Context, currencyCode string, date time.Time) (*RateQuote, error)
}
