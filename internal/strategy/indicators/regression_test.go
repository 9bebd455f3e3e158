package indicators

import (
	"math"
	"testing"
	"time"

	"trendSignalBot/internal/domain"
)

func regressionBars(closes []float64) []*domain.Bar {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = &domain.Bar{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Close:     c,
			High:      c,
			Low:       c,
			IsFinal:   true,
		}
	}
	return bars
}

func TestLinearRegression_PerfectLine(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + 2*float64(i)
	}

	fit, err := LinearRegression(regressionBars(closes))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(fit.Slope-2) > 1e-9 {
		t.Errorf("expected slope 2, got %f", fit.Slope)
	}
	if math.Abs(fit.R2-1) > 1e-9 {
		t.Errorf("expected R2 1, got %f", fit.R2)
	}
}

func TestLinearRegression_NegativeSlope(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 300 - 1.5*float64(i)
	}

	fit, err := LinearRegression(regressionBars(closes))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fit.Slope >= 0 {
		t.Errorf("expected negative slope, got %f", fit.Slope)
	}
}

func TestLinearRegression_NoisyZigzagHasWeakFit(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + 5*float64(i%2)
	}

	fit, err := LinearRegression(regressionBars(closes))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fit.R2 > 0.5 {
		t.Errorf("expected weak fit for an alternating series, got R2 %f", fit.R2)
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	if _, err := LinearRegression(regressionBars([]float64{100})); err == nil {
		t.Error("Expected error for a single bar but got none")
	}

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	if _, err := LinearRegression(regressionBars(flat)); err == nil {
		t.Error("Expected error for flat prices but got none")
	}
}
