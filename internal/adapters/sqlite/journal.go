package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trendSignalBot/internal/domain"
	"trendSignalBot/internal/ports"

	"github.com/mattn/go-sqlite3"
)

// Journal implements the ports.SignalJournal interface using SQLite. It is
// the durable record of emitted signals, and the source the service rebuilds
// its cooldown state from after a restart.
type Journal struct {
	db     *sql.DB
	logger ports.Logger
}

// NewJournal creates a new SQLite signal journal.
// It ensures the database file directory exists and initializes the schema.
func NewJournal(ctx context.Context, dataSourceName string, logger ports.Logger) (*Journal, error) {
	if logger == nil {
		return nil, errors.New("logger is required for SQLite journal")
	}

	// Ensure directory exists
	dir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error(ctx, err, "Failed to create database directory", map[string]interface{}{"directory": dir})
		return nil, fmt.Errorf("failed to create database directory '%s': %w", dir, err)
	}

	// Add WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dataSourceName+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		logger.Error(ctx, err, "Failed to open database connection", map[string]interface{}{"dataSource": dataSourceName})
		return nil, fmt.Errorf("%w: failed to open database: %w", ports.ErrDBConnection, err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error(ctx, err, "Failed to ping database", map[string]interface{}{"dataSource": dataSourceName})
		return nil, fmt.Errorf("%w: failed to ping database: %w", ports.ErrDBConnection, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	journal := &Journal{db: db, logger: logger}
	if err := journal.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info(ctx, "SQLite signal journal initialized successfully", map[string]interface{}{"dataSource": dataSourceName})
	return journal, nil
}

// initializeSchema creates the signals table if it doesn't exist.
func (j *Journal) initializeSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		quality REAL NOT NULL,
		confidence REAL NOT NULL,
		risk_reward REAL NOT NULL,
		bar_index INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_created ON signals (symbol, created_at);
	`
	_, err := j.db.ExecContext(ctx, schema)
	if err != nil {
		j.logger.Error(ctx, err, "Failed to initialize database schema")
		return fmt.Errorf("%w: failed to initialize schema: %w", ports.ErrQueryFailed, err)
	}
	j.logger.Debug(ctx, "Database schema initialized or already exists")
	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	j.logger.Info(context.Background(), "Closing SQLite journal connection")
	return j.db.Close()
}

// Append persists an accepted signal and returns its assigned ID.
func (j *Journal) Append(ctx context.Context, sig *domain.Signal) (int64, error) {
	if sig == nil {
		return 0, fmt.Errorf("%w: cannot append nil signal", ports.ErrInvalidRequest)
	}
	query := `INSERT INTO signals (symbol, direction, entry, stop_loss, take_profit, quality, confidence, risk_reward, bar_index, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := j.db.ExecContext(ctx, query,
		sig.Symbol, string(sig.Direction), sig.Entry, sig.StopLoss, sig.TakeProfit,
		sig.Quality, sig.Confidence, sig.RiskReward, sig.BarIndex, sig.Timestamp.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, fmt.Errorf("%w: %w", ports.ErrDuplicateEntry, err)
		}
		j.logger.Error(ctx, err, "Failed to append signal", map[string]interface{}{"symbol": sig.Symbol})
		return 0, fmt.Errorf("%w: failed to append signal: %w", ports.ErrQueryFailed, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get signal ID: %w", ports.ErrQueryFailed, err)
	}
	sig.ID = id
	j.logger.Debug(ctx, "Signal appended to journal", map[string]interface{}{"id": id, "symbol": sig.Symbol})
	return id, nil
}

// LastBySymbol returns the most recent signal for a symbol, or
// ports.ErrNotFound when the journal holds none.
func (j *Journal) LastBySymbol(ctx context.Context, symbol string) (*domain.Signal, error) {
	query := `SELECT id, symbol, direction, entry, stop_loss, take_profit, quality, confidence, risk_reward, bar_index, created_at
	          FROM signals WHERE symbol = ? ORDER BY created_at DESC, id DESC LIMIT 1`
	row := j.db.QueryRowContext(ctx, query, symbol)
	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no signals for symbol %s", ports.ErrNotFound, symbol)
		}
		j.logger.Error(ctx, err, "Failed to query last signal", map[string]interface{}{"symbol": symbol})
		return nil, fmt.Errorf("%w: failed to query last signal: %w", ports.ErrQueryFailed, err)
	}
	return sig, nil
}

// FindBySymbol returns up to limit recent signals for a symbol, newest first.
func (j *Journal) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, symbol, direction, entry, stop_loss, take_profit, quality, confidence, risk_reward, bar_index, created_at
	          FROM signals WHERE symbol = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		j.logger.Error(ctx, err, "Failed to query signals", map[string]interface{}{"symbol": symbol})
		return nil, fmt.Errorf("%w: failed to query signals: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan signal row: %w", ports.ErrQueryFailed, err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: signal rows iteration failed: %w", ports.ErrQueryFailed, err)
	}
	return signals, nil
}

// CountTodayBySymbol counts signals recorded for a symbol since UTC midnight.
func (j *Journal) CountTodayBySymbol(ctx context.Context, symbol string) (int, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	query := `SELECT COUNT(*) FROM signals WHERE symbol = ? AND created_at >= ?`
	var count int
	if err := j.db.QueryRowContext(ctx, query, symbol, midnight).Scan(&count); err != nil {
		j.logger.Error(ctx, err, "Failed to count today's signals", map[string]interface{}{"symbol": symbol})
		return 0, fmt.Errorf("%w: failed to count signals: %w", ports.ErrQueryFailed, err)
	}
	return count, nil
}

// scanner lets scanSignal work over both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(s scanner) (*domain.Signal, error) {
	var sig domain.Signal
	var direction string
	var createdAt time.Time
	err := s.Scan(&sig.ID, &sig.Symbol, &direction, &sig.Entry, &sig.StopLoss, &sig.TakeProfit,
		&sig.Quality, &sig.Confidence, &sig.RiskReward, &sig.BarIndex, &createdAt)
	if err != nil {
		return nil, err
	}
	sig.Direction = domain.Side(direction)
	sig.Timestamp = createdAt
	return &sig, nil
}
