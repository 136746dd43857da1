package nbp

import (
	"errors"
	"time"

	"nbp-rates-service/pkg/config"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const DefaultBaseURL = "https://api.nbp.pl/api/exchangerates"

// Options configures the transport policy around every NBP call: a timeout per
// attempt, exponential retries with jitter on transient failures and a circuit
// breaker fed only by transport failures and 5xx answers.
type Options struct {
	BaseURL             string
	AttemptTimeout      time.Duration
	MaxRetries          uint64
	RetryBaseDelay      time.Duration
	BreakerWindow       time.Duration
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
	BreakerOpenDuration time.Duration
}

func DefaultOptions() Options {
	return Options{
		BaseURL:             DefaultBaseURL,
		AttemptTimeout:      3 * time.Second,
		MaxRetries:          3,
		RetryBaseDelay:      time.Second,
		BreakerWindow:       10 * time.Second,
		BreakerFailureRatio: 0.2,
		BreakerMinRequests:  3,
		BreakerOpenDuration: time.Second,
	}
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		BaseURL:             cfg.NBP.BaseURL,
		AttemptTimeout:      cfg.NBP.AttemptTimeout,
		MaxRetries:          cfg.NBP.MaxRetries,
		RetryBaseDelay:      cfg.NBP.RetryBaseDelay,
		BreakerWindow:       cfg.NBP.BreakerWindow,
		BreakerFailureRatio: cfg.NBP.BreakerFailureRatio,
		BreakerMinRequests:  cfg.NBP.BreakerMinRequests,
		BreakerOpenDuration: cfg.NBP.BreakerOpenDuration,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BaseURL == "" {
		o.BaseURL = d.BaseURL
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = d.AttemptTimeout
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = d.RetryBaseDelay
	}
	if o.BreakerWindow <= 0 {
		o.BreakerWindow = d.BreakerWindow
	}
	if o.BreakerFailureRatio <= 0 {
		o.BreakerFailureRatio = d.BreakerFailureRatio
	}
	if o.BreakerMinRequests == 0 {
		o.BreakerMinRequests = d.BreakerMinRequests
	}
	if o.BreakerOpenDuration <= 0 {
		o.BreakerOpenDuration = d.BreakerOpenDuration
	}
	return o
}

func (o Options) backoff() retry.Backoff {
	b := retry.NewExponential(o.RetryBaseDelay)
	b = retry.WithJitterPercent(25, b)
	return retry.WithMaxRetries(o.MaxRetries, b)
}

func newBreaker(o Options, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nbp",
		MaxRequests: 1,
		Interval:    o.BreakerWindow,
		Timeout:     o.BreakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < o.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= o.BreakerFailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// a caller walking away says nothing about NBP health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
	})
}
