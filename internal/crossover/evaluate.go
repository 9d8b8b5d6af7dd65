package crossover

import (
	"fmt"

	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/pkg/indicator"
)

// Evaluate decides whether the short average crossed above the long one
// between the last two bars of history. history must be ascending by date.
//
// A symbol with fewer than rule.Long bars, or without both averages defined
// at both points, is reported as InsufficientHistory.
func Evaluate(symbol string, history []*models.Bar, rule Rule, engine indicator.Engine) (Evaluation, error) {
	eval := Evaluation{Symbol: symbol, Outcome: InsufficientHistory, Bars: len(history)}

	if err := rule.Validate(); err != nil {
		return eval, err
	}

	n := len(history)
	if n < rule.Long || n < 2 {
		return eval, nil
	}

	short, err := engine.SMA(history, rule.Short)
	if err != nil {
		return eval, fmt.Errorf("short average for %s: %w", symbol, err)
	}
	long, err := engine.SMA(history, rule.Long)
	if err != nil {
		return eval, fmt.Errorf("long average for %s: %w", symbol, err)
	}

	prev, last := n-2, n-1
	if !short.Defined(prev) || !long.Defined(prev) || !short.Defined(last) || !long.Defined(last) {
		return eval, nil
	}

	eval.Date = history[last].Date
	eval.ShortPrev = short[prev].Unwrap()
	eval.LongPrev = long[prev].Unwrap()
	eval.ShortLast = short[last].Unwrap()
	eval.LongLast = long[last].Unwrap()

	if rule.Prev.holds(eval.ShortPrev, eval.LongPrev) && eval.ShortLast > eval.LongLast {
		eval.Outcome = Crossed
	} else {
		eval.Outcome = NotCrossed
	}
	return eval, nil
}
