// Package market supplies historical candle data. The backtest core depends
// only on the HistoricalDataProvider shape, never on a transport.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

// Query identifies a candle range. Zero StartTime/EndTime mean "most recent
// Limit candles".
type Query struct {
	Symbol    string
	Interval  string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// HistoricalDataProvider returns an ordered, duplicate-free candle series.
type HistoricalDataProvider interface {
	Candles(ctx context.Context, q Query) ([]model.Candle, error)
}

const (
	defaultLimit  = 500
	pageLimit     = 1000
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
)

// BinanceProvider fetches klines from the Binance REST API. This is the one
// true network boundary of a run, so it carries bounded retry with backoff.
type BinanceProvider struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewBinanceProvider(baseURL string, logger *zap.Logger) *BinanceProvider {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (p *BinanceProvider) Candles(ctx context.Context, q Query) ([]model.Candle, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}

	var all []model.Candle
	cursor := q.StartTime
	for {
		page, err := p.fetchPage(ctx, q, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		// Single page covers the open-ended and small-range cases.
		if q.StartTime.IsZero() || len(page) < pageLimit {
			break
		}
		last := page[len(page)-1]
		cursor = last.CloseTime.Add(time.Millisecond)
		if !q.EndTime.IsZero() && !cursor.Before(q.EndTime) {
			break
		}
	}
	return all, nil
}

func (p *BinanceProvider) fetchPage(ctx context.Context, q Query, start time.Time) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	if !start.IsZero() {
		params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
		params.Set("limit", strconv.Itoa(pageLimit))
	} else {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.EndTime.IsZero() {
		params.Set("endTime", strconv.FormatInt(q.EndTime.UnixMilli(), 10))
	}
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", p.baseURL, params.Encode())

	var lastErr error
	wait := retryBaseWait
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		rows, err := p.doRequest(ctx, endpoint)
		if err == nil {
			return p.parseRows(rows, q)
		}
		lastErr = err
		if p.logger != nil {
			p.logger.Warn("klines request failed",
				zap.String("symbol", q.Symbol),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	return nil, fmt.Errorf("fetching klines for %s: %w", q.Symbol, lastErr)
}

func (p *BinanceProvider) doRequest(ctx context.Context, endpoint string) ([][]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines endpoint returned %s", resp.Status)
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding klines response: %w", err)
	}
	return rows, nil
}

// parseRows converts the Binance array-of-arrays kline format:
// [openTime, open, high, low, close, volume, closeTime, ...].
func (p *BinanceProvider) parseRows(rows [][]json.RawMessage, q Query) ([]model.Candle, error) {
	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("malformed kline row with %d fields", len(row))
		}
		var openMs, closeMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("parsing kline open time: %w", err)
		}
		if err := json.Unmarshal(row[6], &closeMs); err != nil {
			return nil, fmt.Errorf("parsing kline close time: %w", err)
		}

		c := model.Candle{
			Symbol:    q.Symbol,
			Interval:  q.Interval,
			OpenTime:  time.UnixMilli(openMs),
			CloseTime: time.UnixMilli(closeMs),
		}
		fields := []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
		for i, dst := range fields {
			var raw string
			if err := json.Unmarshal(row[i+1], &raw); err != nil {
				return nil, fmt.Errorf("parsing kline field %d: %w", i+1, err)
			}
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("parsing kline price %q: %w", raw, err)
			}
			*dst = d
		}
		candles = append(candles, c)
	}
	return candles, nil
}
