package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"trendSignalBot/config"
	"trendSignalBot/internal/adapters/binanceclient"
	"trendSignalBot/internal/adapters/logger"
	"trendSignalBot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDT", "instrument to fetch")
	interval := flag.String("interval", "1h", "kline interval")
	months := flag.Int("months", 3, "how many months of history to fetch")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Market Data Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	end := time.Now()
	start := end.AddDate(0, -*months, 0)

	fmt.Printf("Fetching bars for %s %s from %s to %s...\n", *symbol, *interval, start, end)
	bars, err := binanceClient.GetKlinesRange(context.Background(), *symbol, *interval, start, end)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching bars")
		log.Fatalf("Error fetching bars: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched bars", map[string]interface{}{"count": len(bars)})

	filename := fmt.Sprintf("data/%s_%s_%s_to_%s.csv", *symbol, *interval, start.Format("20060102"), end.Format("20060102"))
	err = utils.WriteBarsToCSV(bars, filename)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": filename})
}
