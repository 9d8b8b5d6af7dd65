package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// MemoryStore is an in-process BarStore with the same first-write-wins
// semantics as SQLStore. The *Err fields let tests inject failures.
type MemoryStore struct {
	mu   sync.RWMutex
	bars map[string]map[string]*models.Bar

	SchemaErr error
	WriteErr  error
	ListErr   error
	ReadErr   error
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bars: make(map[string]map[string]*models.Bar)}
}

func (m *MemoryStore) EnsureSchema(ctx context.Context) error {
	return m.SchemaErr
}

func (m *MemoryStore) UpsertBars(ctx context.Context, bars []*models.Bar) (int, error) {
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	rows, _ := prepareBars(bars)

	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, bar := range rows {
		bySymbol, ok := m.bars[bar.Symbol]
		if !ok {
			bySymbol = make(map[string]*models.Bar)
			m.bars[bar.Symbol] = bySymbol
		}
		key := bar.Date.Format(models.DateLayout)
		if _, exists := bySymbol[key]; exists {
			continue
		}
		bySymbol[key] = bar
		inserted++
	}
	return inserted, nil
}

func (m *MemoryStore) ListSymbols(ctx context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]string, 0, len(m.bars))
	for symbol := range m.bars {
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

func (m *MemoryStore) ReadHistory(ctx context.Context, symbol string) ([]*models.Bar, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Bar, 0, len(m.bars[symbol]))
	for _, bar := range m.bars[symbol] {
		b := *bar
		result = append(result, &b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
