package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"trendSignalBot/config"
	"trendSignalBot/internal/adapters/binanceclient"
	"trendSignalBot/internal/adapters/logger"
	"trendSignalBot/internal/adapters/sqlite"
	"trendSignalBot/internal/app"
	"trendSignalBot/internal/guard"
	"trendSignalBot/internal/strategy"
	"trendSignalBot/internal/strategy/filter"
	"trendSignalBot/internal/strategy/regime"
	"trendSignalBot/internal/strategy/swing"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewZerologLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Signal Journal (Database Adapter)
	journal, err := sqlite.NewJournal(context.Background(), cfg.DBPath, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal journal")
		log.Fatalf("FATAL: Failed to initialize signal journal: %v", err) // Also log to stderr
	}
	defer func() {
		if err := journal.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing signal journal")
		}
	}()
	appLogger.Info(context.Background(), "Signal journal initialized")

	// 4. Initialize Market Data Client (Binance Adapter)
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

	// 5. Initialize Pre-Trade Guard
	preTrade, err := guard.New(guard.Config{
		SessionStartHourUTC: cfg.SessionStartHourUTC,
		SessionEndHourUTC:   cfg.SessionEndHourUTC,
		TradingEnabled:      cfg.TradingEnabled,
		MaxActivePositions:  cfg.MaxActivePositions,
	}, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize pre-trade guard")
		log.Fatalf("FATAL: Failed to initialize pre-trade guard: %v", err)
	}
	micro := &guard.MicrostructureCheck{MaxSpreadPct: cfg.MaxSpreadPct, MinVolume: cfg.MinVolume}

	// 6. Initialize Signal Detector
	detectorCfg := strategy.DefaultConfig()
	detectorCfg.Regime = regime.Config{
		MinBars:             cfg.RegimeMinBars,
		ADXPeriod:           cfg.ADXPeriod,
		ADXThreshold:        cfg.ADXThreshold,
		R2Threshold:         cfg.R2Threshold,
		PrimaryWindow:       cfg.PrimaryWindow,
		SecondaryWindow:     cfg.SecondaryWindow,
		ShortWindow:         cfg.ReversalShortWindow,
		MediumWindow:        cfg.ReversalMedWindow,
		EMAPeriod:           cfg.EMAPeriod,
		EMATolerancePct:     cfg.EMATolerancePct,
		SelectionConfidence: detectorCfg.Regime.SelectionConfidence,
	}
	detectorCfg.Swing = swing.Config{
		MinBars:         cfg.RegimeMinBars,
		Neighborhood:    cfg.SwingNeighborhood,
		MinAmplitudePct: cfg.SwingMinAmplitudePct,
	}
	detectorCfg.Filter = filter.Config{
		MinBars:               cfg.RegimeMinBars,
		MinBarsBetweenSignals: cfg.MinBarsBetweenSignals,
		MinSwingQuality:       cfg.MinSwingQuality,
		ADXBypass:             cfg.ADXBypass,
		PullbackTolerancePct:  cfg.PullbackTolerancePct,
		ATRPeriod:             cfg.ATRPeriod,
		MinSignalQuality:      cfg.MinSignalQuality,
		MinConfidence:         cfg.MinConfidence,
		MinRiskReward:         cfg.MinRiskReward,
	}
	detector, err := strategy.NewDetector(detectorCfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal detector")
		log.Fatalf("FATAL: Failed to initialize signal detector: %v", err)
	}
	appLogger.Info(context.Background(), "Signal detector initialized")

	// 7. Initialize Application Service
	signalService, err := app.NewSignalService(cfg, appLogger, app.Deps{
		Market:   binanceClient,
		Journal:  journal,
		Detector: detector,
		Calendar: preTrade,
		Risk:     preTrade,
		Position: preTrade,
		Micro:    micro,
		Handler:  &app.LoggingSignalHandler{Logger: appLogger},
	}, preTrade.MaxPositions())
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal service")
		log.Fatalf("FATAL: Failed to initialize signal service: %v", err)
	}
	appLogger.Info(context.Background(), "Signal service initialized")

	// 8. Start the Service
	// Use context.Background() as the base context for the application run
	if err := signalService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Signal service exited with error")
		log.Fatalf("FATAL: Signal service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
