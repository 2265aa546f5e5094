package futures

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/logger"
)

const chainJSON = `[
  {
    "symbol": "ZNZ6",
    "delivery_month": "2026-12-01T00:00:00Z",
    "expiry": "2026-12-18T00:00:00Z",
    "bid": 110.25,
    "ask": 110.28125,
    "tick_size": 0.015625,
    "quoted_at": "2026-08-26T14:29:59Z"
  },
  {
    "symbol": "ZNH7",
    "delivery_month": "2027-03-01T00:00:00Z",
    "expiry": "2027-03-19T00:00:00Z",
    "bid": 110.5,
    "ask": 110.53125,
    "tick_size": 0.015625,
    "quoted_at": "2026-08-26T14:29:59Z"
  }
]`

func testClient(baseURL string) *Client {
	return NewClient(config.FuturesConfig{
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		RatePerSec: 100,
		RateBurst:  10,
	}, logger.Nop())
}

func TestFetchChain(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chainJSON))
	}))
	defer server.Close()

	chain, err := testClient(server.URL).FetchChain(context.Background(), contracts.TenorZN)
	require.NoError(t, err)

	assert.Equal(t, "/v1/futures/chain?tenor=ZN", gotURL)
	require.Len(t, chain, 2)

	front := chain[0]
	assert.Equal(t, "ZNZ6", front.Symbol)
	assert.Equal(t, contracts.TenorZN, front.Tenor)
	assert.Equal(t, time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC), front.Expiry)
	assert.Equal(t, "ZNZ6", front.Quote.Symbol)
	assert.Equal(t, contracts.TenorZN, front.Quote.Tenor)
	assert.InDelta(t, 110.25, front.Quote.Bid, 1e-12)
	assert.InDelta(t, 110.28125, front.Quote.Ask, 1e-12)
	assert.InDelta(t, 0.015625, front.Quote.TickSize, 1e-12)

	assert.Equal(t, "ZNH7", chain[1].Symbol)
}

func TestFetchChain_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchChain(context.Background(), contracts.TenorZT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestFetchChain_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchChain(context.Background(), contracts.TenorZT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode ZT chain")
}

func TestFetchSpread(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`{"bid": -6.85, "ask": -6.75, "quoted_at": "2026-08-26T14:29:59Z"}`))
	}))
	defer server.Close()

	sq, err := testClient(server.URL).FetchSpread(context.Background(), "ZTZ6", "ZTH7")
	require.NoError(t, err)

	assert.Equal(t, "/v1/futures/spread?near=ZTZ6&far=ZTH7", gotURL)
	assert.Equal(t, "ZTZ6", sq.NearSymbol)
	assert.Equal(t, "ZTH7", sq.FarSymbol)
	assert.InDelta(t, -6.85, sq.Bid, 1e-12)
	assert.InDelta(t, -6.75, sq.Ask, 1e-12)
	assert.Equal(t, time.Date(2026, 8, 26, 14, 29, 59, 0, time.UTC), sq.AsOf)
}

func TestFetchSpread_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchSpread(context.Background(), "ZNZ6", "ZNH7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spread ZNZ6/ZNH7")
}
