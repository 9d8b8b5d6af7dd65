package storage

import (
	"context"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

// BarStore is the symbol-partitioned daily bar store
type BarStore interface {
	// EnsureSchema creates the bar table when it does not exist. Safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	// UpsertBars inserts bars whose (symbol, date) is not yet stored and returns
	// how many rows were newly inserted. Existing rows are left untouched.
	UpsertBars(ctx context.Context, bars []*models.Bar) (int, error)

	// ListSymbols returns every distinct symbol with at least one stored bar
	ListSymbols(ctx context.Context) ([]string, error)

	// ReadHistory returns all bars of a symbol ordered by ascending date.
	// An unknown symbol yields an empty slice.
	ReadHistory(ctx context.Context, symbol string) ([]*models.Bar, error)

	// Close closes the storage connection
	Close() error
}
