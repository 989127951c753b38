package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ired4706/binance-trading-bot/api"
	"github.com/ired4706/binance-trading-bot/internal/config"
	"github.com/ired4706/binance-trading-bot/internal/connector"
	"github.com/ired4706/binance-trading-bot/internal/engine"
	"github.com/ired4706/binance-trading-bot/internal/infrastructure"
	"github.com/ired4706/binance-trading-bot/internal/market"
	"github.com/ired4706/binance-trading-bot/internal/model"
	"github.com/ired4706/binance-trading-bot/internal/processor"
	"github.com/ired4706/binance-trading-bot/internal/push"
)

// App defines the application structure and its dependencies. The database
// and NATS pieces are optional: without a DSN the provider hits the exchange
// API directly, and without NATS the live relay stays off.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *pgxpool.Pool
	NC          *nats.Conn
	JS          nats.JetStreamContext
	Provider    market.HistoricalDataProvider
	PushGateway *push.PushGateway
	HTTPServer  *http.Server
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init()
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	binance := market.NewBinanceProvider(a.Config.BinanceAPIURL, a.Logger)
	a.Provider = binance

	// 1. Optional candle cache
	if a.Config.DBDSN != "" {
		dbPool, err := pgxpool.Connect(ctx, a.Config.DBDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.DB = dbPool

		store := market.NewCandleStore(dbPool, binance, a.Logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.Provider = store
	}

	// 2. Optional live relay transport
	if a.Config.NatsURL != "" {
		nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.NC = nc
		a.JS = js
		a.PushGateway = push.NewPushGateway(js, a.Logger)
	}

	return nil
}

// Run starts the application services and the HTTP server
func (a *App) Run(ctx context.Context) error {
	if a.JS != nil {
		candleProcessor := processor.NewCandleProcessor(a.JS, a.Logger)
		if err := candleProcessor.Run(ctx); err != nil {
			return fmt.Errorf("failed to start candle processor: %w", err)
		}
		if a.Config.IngestEnabled {
			a.startIngestionWorker(ctx)
		}
	}

	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// startIngestionWorker streams live trades into NATS for the relay path.
func (a *App) startIngestionWorker(ctx context.Context) {
	tradeChan := make(chan model.Trade, 1000)
	c := connector.NewBinanceConnector(a.Logger, a.Config.IngestSymbol)
	go c.Run(ctx, tradeChan)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case trade := <-tradeChan:
				subject := fmt.Sprintf("market.raw.%s.%s", trade.Exchange, trade.Symbol)
				data, err := json.Marshal(trade)
				if err != nil {
					a.Logger.Error("failed to marshal trade", zap.Error(err))
					continue
				}
				if _, err := a.JS.Publish(subject, data); err != nil {
					a.Logger.Error("failed to publish trade", zap.Error(err))
				}
			}
		}
	}()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if a.NC != nil {
		a.NC.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}

	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	pool := engine.NewWorkerPool(a.Config.SweepWorkers, a.Logger)
	optimizer := engine.NewOptimizer(pool, a.Logger)
	apiHandler := api.NewHandler(a.Provider, optimizer, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/klines/:symbol", apiHandler.GetHistoryCandles)
		v1.GET("/strategies", apiHandler.ListStrategies)
		v1.POST("/backtest", apiHandler.RunBacktest)
		v1.POST("/optimize", apiHandler.Optimize)
		v1.POST("/monte-carlo", apiHandler.MonteCarlo)
		v1.POST("/walk-forward", apiHandler.WalkForward)
		v1.POST("/compare", apiHandler.Compare)
		v1.POST("/risk-metrics", apiHandler.RiskMetrics)
	}

	if a.PushGateway != nil {
		r.GET("/ws", func(c *gin.Context) {
			a.PushGateway.ServeHTTP(c.Writer, c.Request)
		})
	}

	return r
}
