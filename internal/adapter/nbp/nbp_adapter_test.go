package nbp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"nbp-rates-service/internal/apperrors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdPayload = `{"table":"C","currency":"dolar amerykański","code":"USD","rates":[{"no":"012/C/NBP/2025","effectiveDate":"2025-01-17","bid":4.0512,"ask":4.1330}]}`

var jan17 = time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:             baseURL,
		AttemptTimeout:      200 * time.Millisecond,
		MaxRetries:          3,
		RetryBaseDelay:      time.Millisecond,
		BreakerWindow:       time.Minute,
		BreakerFailureRatio: 0.2,
		BreakerMinRequests:  100,
		BreakerOpenDuration: time.Minute,
	}
}

func setupTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	return NewClient(testOptions(srv.URL), logger), &hits
}

func TestFetchRate_Success(t *testing.T) {
	var gotPath, gotQuery string
	client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(usdPayload))
	})

	quote, err := client.FetchRate(context.Background(), "USD", jan17)
	require.NoError(t, err)

	assert.Equal(t, "/rates/C/USD/2025-01-17/", gotPath)
	assert.Equal(t, "format=json", gotQuery)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, "USD", quote.CurrencyCode)
	assert.True(t, decimal.RequireFromString("4.0512").Equal(quote.Bid))
	assert.True(t, decimal.RequireFromString("4.1330").Equal(quote.Ask))
	assert.Equal(t, jan17, quote.EffectiveDate)
}

func TestFetchRate_BadRequestIsFinal(t *testing.T) {
	client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "400 BadRequest - Błędny zakres dat", http.StatusBadRequest)
	})

	quote, err := client.FetchRate(context.Background(), "USD", jan17)
	assert.Nil(t, quote)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, "Invalid request for CurrencyCode=USD, EffectiveDate=2025-01-17.", apperrors.Message(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchRate_NotFoundIsFinal(t *testing.T) {
	client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "404 NotFound - Not Found - Brak danych", http.StatusNotFound)
	})

	_, err := client.FetchRate(context.Background(), "XAU", jan17)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.ErrorIs(t, err, ErrRateNotFound)
	assert.Equal(t, "Currency not found for CurrencyCode=XAU, EffectiveDate=2025-01-17.", apperrors.Message(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchRate_ServerErrorIsRetriedThenFails(t *testing.T) {
	client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchRate(context.Background(), "USD", jan17)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, "An error occurred while processing the request to NBP.", apperrors.Message(err))
	assert.Equal(t, int32(4), atomic.LoadInt32(hits))
}

func TestFetchRate_RecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(usdPayload))
	})

	quote, err := client.FetchRate(context.Background(), "USD", jan17)
	require.NoError(t, err)
	assert.Equal(t, "USD", quote.CurrencyCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestFetchRate_AttemptTimeoutIsRetried(t *testing.T) {
	var calls int32
	client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(usdPayload))
	})

	quote, err := client.FetchRate(context.Background(), "USD", jan17)
	require.NoError(t, err)
	assert.Equal(t, "USD", quote.CurrencyCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestFetchRate_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"not json", `<html>oops</html>`, "Could not parse NBP payload."},
		{"null", `null`, "Could not parse NBP payload."},
		{"bad date", `{"table":"C","code":"USD","rates":[{"effectiveDate":"17.01.2025","bid":4.05,"ask":4.13}]}`, "Could not parse NBP payload."},
		{"null bid", `{"table":"C","code":"USD","rates":[{"effectiveDate":"2025-01-17","bid":null,"ask":4.13}]}`, "Could not parse NBP payload."},
		{"missing ask", `{"table":"C","code":"USD","rates":[{"effectiveDate":"2025-01-17","bid":4.05}]}`, "Could not parse NBP payload."},
		{"no rates", `{"table":"C","code":"USD","rates":[]}`, "Invalid number of rates in NBP payload."},
		{"two rates", `{"table":"C","code":"USD","rates":[{"effectiveDate":"2025-01-16","bid":4.0,"ask":4.1},{"effectiveDate":"2025-01-17","bid":4.05,"ask":4.13}]}`, "Invalid number of rates in NBP payload."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, hits := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			quote, err := client.FetchRate(context.Background(), "USD", jan17)
			assert.Nil(t, quote)
			assert.ErrorIs(t, err, apperrors.ErrUpstream)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Equal(t, tt.message, apperrors.Message(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(hits))
		})
	}
}

func TestFetchRate_CallerCancellation(t *testing.T) {
	client, _ := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	quote, err := client.FetchRate(ctx, "USD", jan17)
	assert.Nil(t, quote)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, apperrors.IsCancelled(err))
}

func TestFetchRate_BreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(srv.URL)
	opts.MaxRetries = 0
	opts.BreakerMinRequests = 3
	logger, _ := test.NewNullLogger()
	client := NewClient(opts, logger)

	for i := 0; i < 3; i++ {
		_, err := client.FetchRate(context.Background(), "USD", jan17)
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))

	_, err := client.FetchRate(context.Background(), "USD", jan17)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Equal(t, "An error occurred while processing the request to NBP.", apperrors.Message(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker must not reach NBP")
}

func TestFetchRate_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(srv.URL)
	opts.BreakerMinRequests = 3
	logger, _ := test.NewNullLogger()
	client := NewClient(opts, logger)

	for i := 0; i < 6; i++ {
		_, err := client.FetchRate(context.Background(), "USD", jan17)
		assert.ErrorIs(t, err, ErrRateNotFound)
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(&hits))
}

func TestFetchRate_CallerDeadlineDoesNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(srv.URL)
	opts.AttemptTimeout = 2 * time.Second
	opts.MaxRetries = 0
	opts.BreakerMinRequests = 3
	logger, _ := test.NewNullLogger()
	client := NewClient(opts, logger)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := client.FetchRate(ctx, "USD", jan17)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, apperrors.IsCancelled(err))
	}

	assert.Equal(t, gobreaker.StateClosed, client.breaker.State())
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFetchRate_AttemptTimeoutTripsBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(srv.URL)
	opts.AttemptTimeout = 20 * time.Millisecond
	opts.MaxRetries = 0
	opts.BreakerMinRequests = 3
	logger, _ := test.NewNullLogger()
	client := NewClient(opts, logger)

	for i := 0; i < 3; i++ {
		_, err := client.FetchRate(context.Background(), "USD", jan17)
		assert.ErrorIs(t, err, apperrors.ErrUpstream)
	}

	assert.Equal(t, gobreaker.StateOpen, client.breaker.State())
}
