package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// TechanEngine computes moving averages through techan
type TechanEngine struct{}

func (TechanEngine) Name() string { return "techan" }

func (TechanEngine) SMA(bars []*models.Bar, window int) (Series, error) {
	return TechanSMASeries(bars, window)
}

// TechanSMASeries builds a daily techan time series from bars and evaluates
// techan's SMA indicator at every index.
func TechanSMASeries(bars []*models.Bar, window int) (Series, error) {
	if window < 1 {
		return nil, fmt.Errorf("%w: SMA period must be at least 1, got %d", models.ErrInvalidWindow, window)
	}

	ts := techan.NewTimeSeries()
	for _, bar := range bars {
		if bar == nil {
			return nil, fmt.Errorf("bar cannot be nil")
		}
		candle := techan.NewCandle(techan.NewTimePeriod(bar.Date, 24*time.Hour))
		candle.OpenPrice = big.NewDecimal(bar.Open)
		candle.MaxPrice = big.NewDecimal(bar.High)
		candle.MinPrice = big.NewDecimal(bar.Low)
		candle.ClosePrice = big.NewDecimal(bar.Close)
		candle.Volume = big.NewDecimal(float64(bar.Volume))

		if !ts.AddCandle(candle) {
			return nil, fmt.Errorf("bar for %s on %s is not after the previous bar",
				bar.Symbol, bar.Date.Format(models.DateLayout))
		}
	}

	sma := techan.NewSimpleMovingAverage(techan.NewClosePriceIndicator(ts), window)

	series := make(Series, len(bars))
	for i := range bars {
		if i < window-1 {
			series[i] = optional.None[float64]()
			continue
		}
		value := sma.Calculate(i).Float()
		if math.IsNaN(value) {
			series[i] = optional.None[float64]()
			continue
		}
		series[i] = optional.Some(value)
	}
	return series, nil
}
