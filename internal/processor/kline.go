package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/internal/infrastructure"
	"github.com/ired4706/binance-trading-bot/internal/model"
)

// CandleProcessor folds raw trades from NATS into 1m candles and republishes
// completed bars for the push gateway.
type CandleProcessor struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	candles map[string]*model.Candle
	mu      sync.Mutex
}

func NewCandleProcessor(js nats.JetStreamContext, logger *zap.Logger) *CandleProcessor {
	return &CandleProcessor{
		js:      js,
		logger:  logger,
		candles: make(map[string]*model.Candle),
	}
}

func (p *CandleProcessor) Run(ctx context.Context) error {
	_, err := p.js.Subscribe("market.raw.*.*", func(msg *nats.Msg) {
		var trade model.Trade
		if err := json.Unmarshal(msg.Data, &trade); err != nil {
			p.logger.Error("failed to unmarshal trade in processor", zap.Error(err))
			return
		}
		infrastructure.TradeProcessRate.WithLabelValues(trade.Symbol).Inc()
		p.processTrade(trade)
		msg.Ack()
	}, nats.Durable("candle-processor"), nats.ManualAck())

	if err != nil {
		return err
	}

	go p.flushLoop(ctx)
	p.logger.Info("candle processor started")
	return nil
}

func (p *CandleProcessor) processTrade(trade model.Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 1 minute resolution
	window := trade.Timestamp.Truncate(time.Minute)
	key := fmt.Sprintf("%s:%s:%s", trade.Exchange, trade.Symbol, window.Format(time.RFC3339))

	candle, ok := p.candles[key]
	if !ok {
		candle = &model.Candle{
			Symbol:    trade.Symbol,
			Interval:  "1m",
			Open:      trade.Price,
			High:      trade.Price,
			Low:       trade.Price,
			Close:     trade.Price,
			Volume:    trade.Amount,
			OpenTime:  window,
			CloseTime: window.Add(time.Minute - time.Millisecond),
		}
		p.candles[key] = candle
	} else {
		if trade.Price.GreaterThan(candle.High) {
			candle.High = trade.Price
		}
		if trade.Price.LessThan(candle.Low) {
			candle.Low = trade.Price
		}
		candle.Close = trade.Price
		candle.Volume = candle.Volume.Add(trade.Amount)
	}
}

func (p *CandleProcessor) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *CandleProcessor) flush() {
	p.mu.Lock()
	now := time.Now().Truncate(time.Minute)
	toFlush := make([]*model.Candle, 0)

	for key, candle := range p.candles {
		// A candle stamped before the current minute is complete.
		if candle.OpenTime.Before(now) {
			toFlush = append(toFlush, candle)
			delete(p.candles, key)
		}
	}
	p.mu.Unlock()

	for _, candle := range toFlush {
		subject := fmt.Sprintf("market.kline.1m.%s", candle.Symbol)
		data, _ := json.Marshal(candle)
		_, err := p.js.Publish(subject, data)
		if err != nil {
			p.logger.Error("failed to publish candle", zap.Error(err))
		}
	}
}
