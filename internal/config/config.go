package config

import "github.com/spf13/viper"

type Config struct {
	Port          string `mapstructure:"PORT"`
	DBDSN         string `mapstructure:"DB_DSN"`
	NatsURL       string `mapstructure:"NATS_URL"`
	BinanceAPIURL string `mapstructure:"BINANCE_API_URL"`
	IngestEnabled bool   `mapstructure:"INGEST_ENABLED"`
	IngestSymbol  string `mapstructure:"INGEST_SYMBOL"`
	SweepWorkers  int    `mapstructure:"SWEEP_WORKERS"`
}

func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("app")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("NATS_URL", "")
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("BINANCE_API_URL", "https://api.binance.com")
	viper.SetDefault("INGEST_ENABLED", false)
	viper.SetDefault("INGEST_SYMBOL", "btcusdt")
	viper.SetDefault("SWEEP_WORKERS", 0)

	err = viper.ReadInConfig()
	// If config file not found, we can still use env vars
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	}

	if err != nil {
		return Config{}, err
	}
	err = viper.Unmarshal(&config)
	return
}
