package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/internal/models"
)

var (
	// ErrNoData is returned when the provider has no bars for the requested range
	ErrNoData = errors.New("no data returned")
	// ErrInvalidSymbol is returned when an empty symbol is requested
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrUnknownProvider is returned by the factory for unregistered provider names
	ErrUnknownProvider = errors.New("unknown provider type")
)

// Fetcher retrieves daily history for one symbol
type Fetcher interface {
	// FetchDaily returns the daily bars of symbol between from and to,
	// ascending by date
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]*models.Bar, error)

	// Name returns the provider name (e.g. "yahoo", "polygon")
	Name() string
}

// Factory creates fetchers by provider name
type Factory struct {
	factories map[string]func(config.MarketDataConfig) (Fetcher, error)
}

// NewFactory creates a factory with the built-in providers registered
func NewFactory() *Factory {
	f := &Factory{
		factories: make(map[string]func(config.MarketDataConfig) (Fetcher, error)),
	}

	_ = f.Register("yahoo", func(cfg config.MarketDataConfig) (Fetcher, error) {
		return NewYahooFetcher(cfg.BaseURL, cfg.Timeout), nil
	})
	_ = f.Register("polygon", func(cfg config.MarketDataConfig) (Fetcher, error) {
		return NewPolygonFetcher(cfg.APIKey)
	})
	_ = f.Register("mock", func(cfg config.MarketDataConfig) (Fetcher, error) {
		return NewMockFetcher(), nil
	})

	return f
}

// Register registers a custom fetcher constructor
func (f *Factory) Register(provider string, fn func(config.MarketDataConfig) (Fetcher, error)) error {
	if _, exists := f.factories[provider]; exists {
		return fmt.Errorf("provider type already registered: %s", provider)
	}
	f.factories[provider] = fn
	return nil
}

// Create builds the fetcher named by cfg.Provider
func (f *Factory) Create(cfg config.MarketDataConfig) (Fetcher, error) {
	fn, exists := f.factories[cfg.Provider]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	return fn(cfg)
}

// List returns the registered provider names, sorted
func (f *Factory) List() []string {
	providers := make([]string, 0, len(f.factories))
	for provider := range f.factories {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}

// NewFetcher creates the fetcher configured in cfg
func NewFetcher(cfg config.MarketDataConfig) (Fetcher, error) {
	return NewFactory().Create(cfg)
}

// sortAndDedupe orders bars by date and keeps the first bar per date
func sortAndDedupe(bars []*models.Bar) []*models.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	out := bars[:0]
	for i, bar := range bars {
		if i > 0 && bar.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
