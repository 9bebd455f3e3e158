package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"trendSignalBot/config"
	"trendSignalBot/internal/adapters/logger"
	"trendSignalBot/internal/replay"
	"trendSignalBot/internal/strategy"
	"trendSignalBot/internal/strategy/filter"
	"trendSignalBot/internal/utils"
)

func main() {
	csvPath := flag.String("csv", "", "CSV file of recorded bars (see cmd/fetch_klines)")
	symbol := flag.String("symbol", "ETHUSDT", "instrument the recording belongs to")
	flag.Parse()
	if *csvPath == "" {
		log.Fatal("FATAL: -csv is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 2. Load recorded bars
	bars, err := utils.ReadBarsFromCSV(*csvPath)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error loading bars", map[string]interface{}{"file": *csvPath})
		log.Fatalf("Error loading bars: %v", err)
	}
	appLogger.Info(context.Background(), "Loaded bars", map[string]interface{}{"count": len(bars), "file": *csvPath})

	// 3. Build the detector from configuration
	detector, err := strategy.NewDetector(strategy.DefaultConfig(), appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize signal detector: %v", err)
	}

	// 4. Replay the recording
	engine, err := replay.New(replay.Config{
		Symbol: *symbol,
		Cooldown: filter.CooldownConfig{
			MinBarsBetweenSignals: cfg.MinBarsBetweenSignals,
			BaseCooldown:          cfg.BaseCooldown,
			OppositeCooldown:      cfg.OppositeCooldown,
			ReducedCooldown:       cfg.ReducedCooldown,
			SignificantMoveATR:    cfg.SignificantMoveATR,
			SignificantMovePct:    cfg.SignificantMovePct,
		},
		ATRPeriod: cfg.ATRPeriod,
		WindowCap: cfg.BarCacheSize,
	}, detector, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize replay engine: %v", err)
	}

	result, err := engine.Run(context.Background(), bars)
	if err != nil {
		appLogger.Error(context.Background(), err, "Replay failed")
		log.Fatalf("Replay failed: %v", err)
	}

	fmt.Println(result.Report)
	for _, sig := range result.Signals {
		fmt.Printf("%s  %-4s entry=%.2f sl=%.2f tp=%.2f rrr=%.2f quality=%.1f confidence=%.1f\n",
			sig.Timestamp.Format("2006-01-02 15:04"), sig.Direction,
			sig.Entry, sig.StopLoss, sig.TakeProfit, sig.RiskReward, sig.Quality, sig.Confidence)
	}
}
