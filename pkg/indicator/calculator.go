package indicator

import (
	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// Calculator is a streaming indicator fed one bar at a time
type Calculator interface {
	// Name returns the unique name of this indicator (e.g., "sma_20")
	Name() string

	// Update processes a new bar and returns the current value,
	// or 0 while not enough data has been seen
	Update(bar *models.Bar) (float64, error)

	// Value returns the current indicator value
	// Returns 0 and error if not enough data has been processed
	Value() (float64, error)

	// Reset clears the indicator state
	Reset()

	// IsReady returns true if the indicator has enough data to produce a valid value
	IsReady() bool
}
