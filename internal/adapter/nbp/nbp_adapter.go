package nbp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nbp-rates-service/internal/apperrors"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	msgRequestFailed   = "An error occurred while processing the request to NBP."
	msgInvalidPayload  = "Could not parse NBP payload."
	msgInvalidRateSize = "Invalid number of rates in NBP payload."
)

var (
	ErrInvalidRequest = errors.New("nbp rejected the request")
	ErrRateNotFound   = errors.New("nbp has no rate for the request")
	ErrInvalidPayload = errors.New("invalid nbp payload")

	// errCallerGone marks an attempt aborted by the caller's own context.
	errCallerGone = errors.New("caller context done")
)

type Client struct {
	httpClient *http.Client
	opts       Options
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

func NewClient(opts Options, logger *logrus.Logger) *Client {
	opts = opts.withDefaults()
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: opts.AttemptTimeout,
			},
		},
		opts:    opts,
		breaker: newBreaker(opts, logger),
		logger:  logger,
	}
}

type response struct {
	status int
	body   []byte
}

// FetchRate asks NBP table C for the bid/ask of currencyCode on date. Failures
// are classified as upstream errors, except cancellation of ctx which is
// returned as the bare context error.
func (c *Client) FetchRate(ctx context.Context, currencyCode string, date time.Time) (*RateQuote, error) {
	day := date.Format(time.DateOnly)
	endpoint := fmt.Sprintf("%s/rates/C/%s/%s/?format=json", c.opts.BaseURL, url.PathEscape(currencyCode), day)

	log := c.logger.WithFields(logrus.Fields{"currency_code": currencyCode, "effective_date": day})
	log.Infof("Fetching rate from URL: %s", endpoint)

	var (
		resp    *response
		attempt int
	)
	err := retry.Do(ctx, c.opts.backoff(), func(ctx context.Context) error {
		attempt++
		out, err := c.breaker.Execute(func() (interface{}, error) {
			resp, err := c.do(ctx, endpoint)
			if err != nil && ctx.Err() != nil {
				return nil, errCallerGone
			}
			return resp, err
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Warnf("NBP attempt #%d failed", attempt)
			return retry.RetryableError(err)
		}
		resp = out.(*response)
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Info("NBP request aborted by caller")
			return nil, ctxErr
		}
		log.WithError(err).Errorf("NBP request failed after %d attempts", attempt)
		return nil, apperrors.NewUpstreamError(msgRequestFailed, err)
	}

	log.Debugf("Response status: %d, body length: %d", resp.status, len(resp.body))

	switch resp.status {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("Invalid request for CurrencyCode=%s, EffectiveDate=%s.", currencyCode, day), ErrInvalidRequest)
	case http.StatusNotFound:
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("Currency not found for CurrencyCode=%s, EffectiveDate=%s.", currencyCode, day), ErrRateNotFound)
	default:
		log.Errorf("Unexpected NBP response status: %d", resp.status)
		return nil, apperrors.NewUpstreamError(msgRequestFailed, fmt.Errorf("unexpected status %d", resp.status))
	}

	quote, err := parseQuote(resp.body)
	if err != nil {
		log.WithError(err).Error("Failed to parse NBP payload")
		return nil, err
	}

	log.WithFields(logrus.Fields{"bid": quote.Bid.String(), "ask": quote.Ask.String()}).Info("Fetched rate from NBP")
	return quote, nil
}

// do performs one attempt. 5xx answers are returned as errors so that they are
// retried and counted by the breaker; anything else is a final answer.
func (c *Client) do(ctx context.Context, endpoint string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("nbp responded with status %d", resp.StatusCode)
	}

	return &response{status: resp.StatusCode, body: body}, nil
}

func parseQuote(body []byte) (*RateQuote, error) {
	var payload *ExchangeRatesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewUpstreamError(msgInvalidPayload, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}
	if payload == nil {
		return nil, apperrors.NewUpstreamError(msgInvalidPayload, fmt.Errorf("%w: empty body", ErrInvalidPayload))
	}

	if len(payload.Rates) != 1 {
		return nil, apperrors.NewUpstreamError(msgInvalidRateSize,
			fmt.Errorf("%w: got %d rates", ErrInvalidPayload, len(payload.Rates)))
	}

	rate := payload.Rates[0]
	if !rate.Bid.Valid || !rate.Ask.Valid {
		return nil, apperrors.NewUpstreamError(msgInvalidPayload, fmt.Errorf("%w: missing bid or ask", ErrInvalidPayload))
	}
	effective, err := time.Parse(time.DateOnly, rate.EffectiveDate)
	if err != nil {
		return nil, apperrors.NewUpstreamError(msgInvalidPayload, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}

	return &RateQuote{
		CurrencyCode:  payload.Code,
		Bid:           rate.Bid.Decimal,
		Ask:           rate.Ask.Decimal,
		EffectiveDate: effective,
	}, nil
}
