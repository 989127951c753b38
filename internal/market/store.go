package market

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/model"
)

// CandleStore caches candles in postgres in front of another provider. It
// satisfies HistoricalDataProvider itself: reads hit the cache first and
// fall back to the wrapped provider, writing fetched candles back.
type CandleStore struct {
	pool     *pgxpool.Pool
	fallback HistoricalDataProvider
	logger   *zap.Logger
}

func NewCandleStore(pool *pgxpool.Pool, fallback HistoricalDataProvider, logger *zap.Logger) *CandleStore {
	return &CandleStore{pool: pool, fallback: fallback, logger: logger}
}

// EnsureSchema creates the cache table if missing.
func (s *CandleStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS market_candles (
			symbol     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			open_time  TIMESTAMPTZ NOT NULL,
			open       NUMERIC NOT NULL,
			high       NUMERIC NOT NULL,
			low        NUMERIC NOT NULL,
			close      NUMERIC NOT NULL,
			volume     NUMERIC NOT NULL,
			close_time TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (symbol, interval, open_time)
		)`)
	if err != nil {
		return fmt.Errorf("creating market_candles table: %w", err)
	}
	return nil
}

func (s *CandleStore) Candles(ctx context.Context, q Query) ([]model.Candle, error) {
	cached, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}
	if s.fallback == nil {
		return cached, nil
	}

	fetched, err := s.fallback.Candles(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, fetched); err != nil {
		// Cache write failure must not fail the run.
		s.logger.Warn("failed to cache candles", zap.String("symbol", q.Symbol), zap.Error(err))
	}
	return fetched, nil
}

func (s *CandleStore) load(ctx context.Context, q Query) ([]model.Candle, error) {
	query := `
		SELECT symbol, interval, open_time, open, high, low, close, volume, close_time
		FROM market_candles
		WHERE symbol = $1 AND interval = $2`
	args := []interface{}{q.Symbol, q.Interval}

	if !q.StartTime.IsZero() {
		args = append(args, q.StartTime)
		query += fmt.Sprintf(" AND open_time >= $%d", len(args))
	}
	if !q.EndTime.IsZero() {
		args = append(args, q.EndTime)
		query += fmt.Sprintf(" AND open_time < $%d", len(args))
	}
	query += " ORDER BY open_time ASC"
	if q.StartTime.IsZero() && q.Limit > 0 {
		// Most-recent window: take the tail.
		query = fmt.Sprintf(`SELECT * FROM (%s) t ORDER BY open_time DESC LIMIT %d`, query, q.Limit)
		query = fmt.Sprintf(`SELECT * FROM (%s) t2 ORDER BY open_time ASC`, query)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading cached candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var openTime, closeTime time.Time
		if err := rows.Scan(&c.Symbol, &c.Interval, &openTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &closeTime); err != nil {
			return nil, fmt.Errorf("scanning cached candle: %w", err)
		}
		c.OpenTime = openTime
		c.CloseTime = closeTime
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Save upserts candles; duplicate bars for a (symbol, interval, openTime)
// are ignored.
func (s *CandleStore) Save(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(`
			INSERT INTO market_candles (symbol, interval, open_time, open, high, low, close, volume, close_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (symbol, interval, open_time) DO NOTHING`,
			c.Symbol, c.Interval, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.CloseTime)
	}
	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()
	for range candles {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("inserting candle batch: %w", err)
		}
	}
	return nil
}
