package domain

import "time"

// Bar represents a single closed price bar for an instrument.
type Bar struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Bar interval (e.g., "1m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
	Spread    float64   // Bid/ask spread at close (0 if the feed does not provide it)
	IsFinal   bool      // Whether this bar is the final one for the interval
}
