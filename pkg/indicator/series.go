package indicator

import (
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// Series holds one moving-average value per bar. Positions before the
// window fills are None.
type Series []optional.Option[float64]

// At returns the value at index i, None when i is out of range
func (s Series) At(i int) optional.Option[float64] {
	if i < 0 || i >= len(s) {
		return optional.None[float64]()
	}
	return s[i]
}

// Defined reports whether a value exists at index i
func (s Series) Defined(i int) bool {
	return s.At(i).IsSome()
}

// Run feeds bars through calc from a clean state and records its value
// after each bar. Positions where calc is not ready are None.
func Run(calc Calculator, bars []*models.Bar) (Series, error) {
	calc.Reset()

	series := make(Series, len(bars))
	for i, bar := range bars {
		if _, err := calc.Update(bar); err != nil {
			return nil, fmt.Errorf("%s: %w", calc.Name(), err)
		}
		if !calc.IsReady() {
			series[i] = optional.None[float64]()
			continue
		}
		value, err := calc.Value()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", calc.Name(), err)
		}
		series[i] = optional.Some(value)
	}
	return series, nil
}

// SMASeries computes the trailing simple moving average of closes
func SMASeries(bars []*models.Bar, window int) (Series, error) {
	sma, err := NewSMA(window)
	if err != nil {
		return nil, err
	}
	return Run(sma, bars)
}

// Engine computes moving-average series over a bar history
type Engine interface {
	Name() string
	SMA(bars []*models.Bar, window int) (Series, error)
}

// NativeEngine computes moving averages with the SMA calculator
type NativeEngine struct{}

func (NativeEngine) Name() string { return "native" }

func (NativeEngine) SMA(bars []*models.Bar, window int) (Series, error) {
	series, err := SMASeries(bars, window)
	if err != nil {
		return nil, fmt.Errorf("native sma: %w", err)
	}
	return series, nil
}
