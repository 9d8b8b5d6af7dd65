package fetcher

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// MockFetcher generates a deterministic random walk per symbol for offline
// runs. Failures maps a symbol to the error returned for it.
type MockFetcher struct {
	mu       sync.Mutex
	Failures map[string]error
	calls    map[string]int
}

// NewMockFetcher creates a mock fetcher
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (m *MockFetcher) Name() string {
	return "mock"
}

// FetchDaily returns one bar per weekday in [from, to]
func (m *MockFetcher) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]*models.Bar, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls[symbol]++
	err := m.Failures[symbol]
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := 20 + rng.Float64()*180
	var bars []*models.Bar
	for d := models.NormalizeDate(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		open := price
		price = math.Max(1, price*(1+(rng.Float64()-0.5)*0.04))
		high := math.Max(open, price) * (1 + rng.Float64()*0.01)
		low := math.Min(open, price) * (1 - rng.Float64()*0.01)
		bars = append(bars, &models.Bar{
			Symbol: symbol,
			Date:   d,
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(price),
			Volume: 100000 + rng.Int63n(900000),
		})
	}

	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// Calls returns how many times symbol was fetched
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
