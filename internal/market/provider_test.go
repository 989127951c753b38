package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const klinePayload = `[
	[1700000000000, "35000.10", "35100.00", "34900.00", "35050.50", "12.345", 1700000059999, "0", 0, "0", "0", "0"],
	[1700000060000, "35050.50", "35200.00", "35000.00", "35150.00", "8.5", 1700000119999, "0", 0, "0", "0", "0"]
]`

func TestBinanceProvider_ParsesKlines(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		gotQuery.Store(r.URL.Query())
		fmt.Fprint(w, klinePayload)
	}))
	defer srv.Close()

	p := NewBinanceProvider(srv.URL, zap.NewNop())
	candles, err := p.Candles(context.Background(), Query{Symbol: "BTCUSDT", Interval: "1m", Limit: 2})
	require.NoError(t, err)

	require.Len(t, candles, 2)
	first := candles[0]
	assert.Equal(t, "BTCUSDT", first.Symbol)
	assert.Equal(t, "1m", first.Interval)
	assert.Equal(t, time.UnixMilli(1700000000000), first.OpenTime)
	assert.Equal(t, time.UnixMilli(1700000059999), first.CloseTime)
	assert.Equal(t, "35000.1", first.Open.String())
	assert.Equal(t, "35050.5", first.Close.String())
	assert.Equal(t, "12.345", first.Volume.String())

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "BTCUSDT", q.Get("symbol"))
	assert.Equal(t, "2", q.Get("limit"))
	assert.Empty(t, q.Get("startTime"))
}

func TestBinanceProvider_StartTimeUsesPageLimit(t *testing.T) {
	start := time.UnixMilli(1700000000000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1700000000000", r.URL.Query().Get("startTime"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		fmt.Fprint(w, klinePayload)
	}))
	defer srv.Close()

	p := NewBinanceProvider(srv.URL, zap.NewNop())
	candles, err := p.Candles(context.Background(), Query{
		Symbol:    "BTCUSDT",
		Interval:  "1m",
		StartTime: start,
	})
	require.NoError(t, err)
	assert.Len(t, candles, 2)
}

func TestBinanceProvider_RetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, klinePayload)
	}))
	defer srv.Close()

	p := NewBinanceProvider(srv.URL, zap.NewNop())
	candles, err := p.Candles(context.Background(), Query{Symbol: "BTCUSDT", Interval: "1m"})
	require.NoError(t, err)

	assert.Len(t, candles, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestBinanceProvider_ExhaustedRetriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewBinanceProvider(srv.URL, zap.NewNop())
	_, err := p.Candles(context.Background(), Query{Symbol: "BTCUSDT", Interval: "1m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching klines for BTCUSDT")
}

func TestBinanceProvider_MalformedRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[1700000000000, "35000.10"]]`)
	}))
	defer srv.Close()

	p := NewBinanceProvider(srv.URL, zap.NewNop())
	_, err := p.Candles(context.Background(), Query{Symbol: "BTCUSDT", Interval: "1m"})
	assert.ErrorContains(t, err, "malformed kline row")
}
