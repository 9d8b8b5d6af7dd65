package indicator

import (
	"fmt"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// SMA calculates the Simple Moving Average over close prices
// SMA = Sum of closes over period / period
type SMA struct {
	period int
	name   string
	prices []float64
	ready  bool
}

// NewSMA creates a new SMA calculator with the specified period
func NewSMA(period int) (*SMA, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: SMA period must be at least 1, got %d", models.ErrInvalidWindow, period)
	}

	return &SMA{
		period: period,
		name:   fmt.Sprintf("sma_%d", period),
		prices: make([]float64, 0, period),
	}, nil
}

// Name returns the indicator name
func (s *SMA) Name() string {
	return s.name
}

// Update processes a new bar and updates the SMA calculation
func (s *SMA) Update(bar *models.Bar) (float64, error) {
	if bar == nil {
		return 0, fmt.Errorf("bar cannot be nil")
	}

	s.prices = append(s.prices, bar.Close)

	if len(s.prices) > s.period {
		copy(s.prices, s.prices[1:])
		s.prices = s.prices[:len(s.prices)-1]
	}

	if len(s.prices) >= s.period {
		s.ready = true
		return s.calculateSMA(), nil
	}
	return 0, nil
}

// calculateSMA sums the window from scratch so equal windows always give
// bit-identical means.
func (s *SMA) calculateSMA() float64 {
	if len(s.prices) == 0 {
		return 0
	}

	var sum float64
	for _, price := range s.prices {
		sum += price
	}

	return sum / float64(len(s.prices))
}

// Value returns the current SMA value
func (s *SMA) Value() (float64, error) {
	if !s.ready {
		return 0, fmt.Errorf("SMA not ready: need at least %d bars", s.period)
	}
	return s.calculateSMA(), nil
}

// Reset clears the SMA state
func (s *SMA) Reset() {
	s.prices = s.prices[:0]
	s.ready = false
}

// IsReady returns true if the SMA has enough data
func (s *SMA) IsReady() bool {
	return s.ready
}
