package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in logs
const DateLayout = "2006-01-02"

// Bar represents one daily OHLCV observation for a symbol.
// (Symbol, Date) is the uniqueness key.
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Validate validates a Bar. Prices must be finite and non-negative.
// OHLC ordering is not checked.
func (b *Bar) Validate() error {
	if b.Symbol == "" {
		return ErrInvalidSymbol
	}
	if b.Date.IsZero() {
		return ErrInvalidDate
	}
	for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return ErrInvalidPrice
		}
	}
	if b.Volume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// Key returns the (symbol, date) uniqueness key
func (b *Bar) Key() string {
	return b.Symbol + "|" + b.Date.Format(DateLayout)
}

// NormalizeDate drops the time-of-day and location, keeping the calendar date
// as seen in t's own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Crossover is a detected golden cross for one symbol
type Crossover struct {
	Symbol      string    `json:"symbol"`
	ShortWindow int       `json:"short_window"`
	LongWindow  int       `json:"long_window"`
	Date        time.Time `json:"date"`
	ShortMA     float64   `json:"short_ma"`
	LongMA      float64   `json:"long_ma"`
	PrevShortMA float64   `json:"prev_short_ma"`
	PrevLongMA  float64   `json:"prev_long_ma"`
	DetectedAt  time.Time `json:"detected_at"`
}
