package crossover

import (
	"fmt"
	"time"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// Comparison is the operator applied at the second-to-last point
type Comparison string

const (
	// LessOrEqual accepts a touch before the cross (short <= long)
	LessOrEqual Comparison = "lte"
	// LessThan requires the short average strictly below (short < long)
	LessThan Comparison = "lt"
)

// ParseComparison parses "lte" or "lt"; empty means LessOrEqual
func ParseComparison(s string) (Comparison, error) {
	switch Comparison(s) {
	case "", LessOrEqual:
		return LessOrEqual, nil
	case LessThan:
		return LessThan, nil
	default:
		return "", fmt.Errorf("unknown comparison %q: expected lte or lt", s)
	}
}

func (c Comparison) holds(short, long float64) bool {
	if c == LessThan {
		return short < long
	}
	return short <= long
}

// Rule selects the two windows and the prev-point comparison
type Rule struct {
	Short int
	Long  int
	Prev  Comparison
}

// Validate checks both windows are positive. Short >= Long is allowed.
func (r Rule) Validate() error {
	if r.Short < 1 || r.Long < 1 {
		return fmt.Errorf("%w: short=%d long=%d", models.ErrInvalidWindow, r.Short, r.Long)
	}
	return nil
}

// Outcome of evaluating one symbol
type Outcome string

const (
	Crossed             Outcome = "crossed"
	NotCrossed          Outcome = "not_crossed"
	InsufficientHistory Outcome = "insufficient_history"
)

// Evaluation is the per-symbol detector result. The MA fields are zero
// when Outcome is InsufficientHistory.
type Evaluation struct {
	Symbol    string    `json:"symbol"`
	Outcome   Outcome   `json:"outcome"`
	Bars      int       `json:"bars"`
	Date      time.Time `json:"date,omitempty"`
	ShortPrev float64   `json:"short_prev"`
	LongPrev  float64   `json:"long_prev"`
	ShortLast float64   `json:"short_last"`
	LongLast  float64   `json:"long_last"`
}

// Crossover converts a Crossed evaluation into the published record
func (e Evaluation) Crossover(rule Rule, detectedAt time.Time) *models.Crossover {
	return &models.Crossover{
		Symbol:      e.Symbol,
		ShortWindow: rule.Short,
		LongWindow:  rule.Long,
		Date:        e.Date,
		ShortMA:     e.ShortLast,
		LongMA:      e.LongLast,
		PrevShortMA: e.ShortPrev,
		PrevLongMA:  e.LongPrev,
		DetectedAt:  detectedAt,
	}
}

// NoCrossoversMessage is shown when a scan finds nothing
const NoCrossoversMessage = "No stocks found with the selected moving average crossover."
