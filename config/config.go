package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"trendSignalBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API (kline endpoints are public; keys are optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Instruments
	Symbols  []string // instruments to watch, comma separated in env
	Interval string   // kline interval, e.g. "1h"

	// Regime Classification
	RegimeMinBars       int     // e.g., 20
	ADXPeriod           int     // e.g., 14
	ADXThreshold        float64 // e.g., 25.0
	R2Threshold         float64 // e.g., 0.6
	PrimaryWindow       int     // e.g., 100
	SecondaryWindow     int     // e.g., 180
	ReversalShortWindow int     // e.g., 30
	ReversalMedWindow   int     // e.g., 60
	EMAPeriod           int     // e.g., 34
	EMATolerancePct     float64 // e.g., 0.0005

	// Swing Structure
	SwingNeighborhood    int     // e.g., 3
	SwingMinAmplitudePct float64 // e.g., 0.001

	// Signal Filtering
	MinBarsBetweenSignals int     // e.g., 12
	MinSwingQuality       float64 // e.g., 60.0
	ADXBypass             float64 // e.g., 25.0
	PullbackTolerancePct  float64 // e.g., 0.003
	ATRPeriod             int     // e.g., 14
	MinSignalQuality      float64 // e.g., 75.0
	MinConfidence         float64 // e.g., 80.0
	MinRiskReward         float64 // e.g., 2.0

	// Wall-Clock Cooldowns
	BaseCooldown       time.Duration // e.g., 30m
	OppositeCooldown   time.Duration // e.g., 15m
	ReducedCooldown    time.Duration // e.g., 10m
	SignificantMoveATR float64       // e.g., 2.0
	SignificantMovePct float64       // e.g., 0.01

	// Pre-Trade Guard
	SessionStartHourUTC int
	SessionEndHourUTC   int
	TradingEnabled      bool
	MaxActivePositions  int
	MaxSpreadPct        float64
	MinVolume           float64

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	BarCacheSize         int // rolling window length kept per instrument
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	// Binance API. Kline streaming and history are public endpoints, so
	// missing keys are not a validation error here.
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Instruments
	symbolsStr := getEnv("SYMBOLS", "ETHUSDT")
	for _, s := range strings.Split(symbolsStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			cfg.Symbols = append(cfg.Symbols, strings.ToUpper(s))
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one instrument")
	}
	cfg.Interval = getEnv("INTERVAL", "1h")
	if cfg.Interval == "" {
		errs = append(errs, "INTERVAL must be set")
	}

	// Regime Classification
	cfg.RegimeMinBars = getEnvAsInt("REGIME_MIN_BARS", 20)
	cfg.ADXPeriod = getEnvAsInt("ADX_PERIOD", 14)
	cfg.ADXThreshold = getEnvAsFloat("ADX_THRESHOLD", 25.0)
	cfg.R2Threshold = getEnvAsFloat("R2_THRESHOLD", 0.6)
	cfg.PrimaryWindow = getEnvAsInt("REGIME_PRIMARY_WINDOW", 100)
	cfg.SecondaryWindow = getEnvAsInt("REGIME_SECONDARY_WINDOW", 180)
	cfg.ReversalShortWindow = getEnvAsInt("REVERSAL_SHORT_WINDOW", 30)
	cfg.ReversalMedWindow = getEnvAsInt("REVERSAL_MEDIUM_WINDOW", 60)
	cfg.EMAPeriod = getEnvAsInt("EMA_PERIOD", 34)
	cfg.EMATolerancePct = getEnvAsFloat("EMA_TOLERANCE_PCT", 0.0005)

	if cfg.RegimeMinBars <= 0 || cfg.ADXPeriod <= 0 || cfg.EMAPeriod <= 0 {
		errs = append(errs, "regime periods (min bars, ADX, EMA) must be positive")
	}
	if cfg.ADXThreshold <= 0 || cfg.R2Threshold <= 0 || cfg.R2Threshold > 1 {
		errs = append(errs, "invalid regime thresholds (ADX_THRESHOLD > 0, R2_THRESHOLD in (0,1])")
	}
	if cfg.PrimaryWindow >= cfg.SecondaryWindow {
		errs = append(errs, "REGIME_PRIMARY_WINDOW must be less than REGIME_SECONDARY_WINDOW")
	}
	if cfg.ReversalShortWindow >= cfg.ReversalMedWindow {
		errs = append(errs, "REVERSAL_SHORT_WINDOW must be less than REVERSAL_MEDIUM_WINDOW")
	}
	if cfg.EMATolerancePct <= 0 {
		errs = append(errs, "EMA_TOLERANCE_PCT must be positive")
	}

	// Swing Structure
	cfg.SwingNeighborhood = getEnvAsInt("SWING_NEIGHBORHOOD", 3)
	cfg.SwingMinAmplitudePct = getEnvAsFloat("SWING_MIN_AMPLITUDE_PCT", 0.001)
	if cfg.SwingNeighborhood <= 0 {
		errs = append(errs, "SWING_NEIGHBORHOOD must be positive")
	}
	if cfg.SwingMinAmplitudePct < 0 {
		errs = append(errs, "SWING_MIN_AMPLITUDE_PCT cannot be negative")
	}

	// Signal Filtering
	cfg.MinBarsBetweenSignals = getEnvAsInt("MIN_BARS_BETWEEN_SIGNALS", 12)
	cfg.MinSwingQuality = getEnvAsFloat("MIN_SWING_QUALITY", 60.0)
	cfg.ADXBypass = getEnvAsFloat("ADX_BYPASS", 25.0)
	cfg.PullbackTolerancePct = getEnvAsFloat("PULLBACK_TOLERANCE_PCT", 0.003)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 14)
	cfg.MinSignalQuality = getEnvAsFloat("MIN_SIGNAL_QUALITY", 75.0)
	cfg.MinConfidence = getEnvAsFloat("MIN_CONFIDENCE", 80.0)
	cfg.MinRiskReward = getEnvAsFloat("MIN_RISK_REWARD", 2.0)

	if cfg.MinBarsBetweenSignals < 0 {
		errs = append(errs, "MIN_BARS_BETWEEN_SIGNALS cannot be negative")
	}
	if cfg.MinSwingQuality < 0 || cfg.MinSwingQuality > 100 || cfg.MinSignalQuality < 0 || cfg.MinSignalQuality > 100 || cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		errs = append(errs, "quality and confidence thresholds must be between 0 and 100")
	}
	if cfg.ATRPeriod <= 0 {
		errs = append(errs, "ATR_PERIOD must be positive")
	}
	if cfg.MinRiskReward <= 0 {
		errs = append(errs, "MIN_RISK_REWARD must be positive")
	}

	// Wall-Clock Cooldowns
	cfg.BaseCooldown = getEnvAsDuration("BASE_COOLDOWN", 30*time.Minute)
	cfg.OppositeCooldown = getEnvAsDuration("OPPOSITE_COOLDOWN", 15*time.Minute)
	cfg.ReducedCooldown = getEnvAsDuration("REDUCED_COOLDOWN", 10*time.Minute)
	cfg.SignificantMoveATR = getEnvAsFloat("SIGNIFICANT_MOVE_ATR", 2.0)
	cfg.SignificantMovePct = getEnvAsFloat("SIGNIFICANT_MOVE_PCT", 0.01)

	if cfg.BaseCooldown <= 0 || cfg.OppositeCooldown <= 0 || cfg.ReducedCooldown <= 0 {
		errs = append(errs, "cooldown durations must be positive")
	}
	if cfg.ReducedCooldown > cfg.BaseCooldown {
		errs = append(errs, "REDUCED_COOLDOWN cannot exceed BASE_COOLDOWN")
	}
	if cfg.SignificantMoveATR <= 0 || cfg.SignificantMovePct <= 0 {
		errs = append(errs, "significant-move thresholds must be positive")
	}

	// Pre-Trade Guard
	cfg.SessionStartHourUTC = getEnvAsInt("SESSION_START_HOUR_UTC", 0)
	cfg.SessionEndHourUTC = getEnvAsInt("SESSION_END_HOUR_UTC", 24)
	cfg.TradingEnabled = getEnvAsBool("TRADING_ENABLED", true)
	cfg.MaxActivePositions = getEnvAsInt("MAX_ACTIVE_POSITIONS", 1)
	cfg.MaxSpreadPct = getEnvAsFloat("MAX_SPREAD_PCT", 0.001)
	cfg.MinVolume = getEnvAsFloat("MIN_VOLUME", 0.0)

	if cfg.SessionStartHourUTC < 0 || cfg.SessionStartHourUTC > 23 {
		errs = append(errs, "SESSION_START_HOUR_UTC must be in [0,23]")
	}
	if cfg.SessionEndHourUTC < 1 || cfg.SessionEndHourUTC > 24 {
		errs = append(errs, "SESSION_END_HOUR_UTC must be in [1,24]")
	}
	if cfg.MaxActivePositions < 1 {
		errs = append(errs, "MAX_ACTIVE_POSITIONS must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Connection Settings
	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	cfg.BarCacheSize = getEnvAsInt("BAR_CACHE_SIZE", 500)
	if cfg.BarCacheSize < cfg.SecondaryWindow {
		errs = append(errs, "BAR_CACHE_SIZE must cover REGIME_SECONDARY_WINDOW")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
