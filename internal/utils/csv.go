package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"trendSignalBot/internal/domain"
)

var barHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume", "spread"}

// WriteBarsToCSV writes bar data to a CSV file, creating parent directories
// as needed. Timestamps are stored as Unix milliseconds.
func WriteBarsToCSV(bars []*domain.Bar, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for CSV file: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(barHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, bar := range bars {
		record := []string{
			strconv.FormatInt(bar.OpenTime.UnixMilli(), 10),
			strconv.FormatInt(bar.CloseTime.UnixMilli(), 10),
			bar.Symbol,
			bar.Interval,
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
			strconv.FormatFloat(bar.Spread, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return nil
}

// ReadBarsFromCSV reads bar data written by WriteBarsToCSV. Every bar is
// marked final: recorded history has no forming bars.
func ReadBarsFromCSV(filePath string) ([]*domain.Bar, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(barHeader)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file %s is empty", filePath)
	}

	bars := make([]*domain.Bar, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		bar, err := parseBarRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("CSV row %d: %w", i+2, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarRecord(rec []string) (*domain.Bar, error) {
	openMs, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid open_time %q: %w", rec[0], err)
	}
	closeMs, err := strconv.ParseInt(rec[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid close_time %q: %w", rec[1], err)
	}
	floats := make([]float64, 6)
	for i, field := range rec[4:10] {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", barHeader[4+i], field, err)
		}
		floats[i] = f
	}
	return &domain.Bar{
		OpenTime:  time.UnixMilli(openMs),
		CloseTime: time.UnixMilli(closeMs),
		Symbol:    rec[2],
		Interval:  rec[3],
		Open:      floats[0],
		High:      floats[1],
		Low:       floats[2],
		Close:     floats[3],
		Volume:    floats[4],
		Spread:    floats[5],
		IsFinal:   true,
	}, nil
}
