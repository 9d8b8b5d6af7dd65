package crossover

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/internal/storage"
	"github.com/mohamedkhairy/golden-cross/pkg/indicator"
)

func seed(t *testing.T, store storage.BarStore, symbol string, closes ...float64) {
	t.Helper()
	_, err := store.UpsertBars(context.Background(), history(symbol, closes...))
	require.NoError(t, err)
}

func TestDetector_FindCrossovers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	seed(t, store, "CROSS", append(repeat(10, 9), 8, 13)...)
	seed(t, store, "TOUCH", append(repeat(10, 9), 8, 12)...)
	seed(t, store, "SHORT", 1, 2)
	seed(t, store, "DOWN", 9, 8, 7, 6, 5, 4)

	detector := NewDetector(store, DetectorConfig{})

	symbols, err := detector.FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"CROSS"}, symbols)
}

func TestDetector_SymbolsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	// each symbol crosses alone; mixing their closes would not
	seed(t, store, "AAA", append(repeat(10, 9), 8, 13)...)
	seed(t, store, "BBB", append(repeat(100, 9), 80, 130)...)

	symbols, err := NewDetector(store, DetectorConfig{}).FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, symbols)
}

func TestDetector_EmptyStore(t *testing.T) {
	symbols, err := NewDetector(storage.NewMemoryStore(), DetectorConfig{}).FindCrossovers(context.Background(), 20, 50)
	require.NoError(t, err)
	assert.NotNil(t, symbols)
	assert.Empty(t, symbols)
}

func TestDetector_StrictComparison(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seed(t, store, "EQ", 10, 10, 10, 13)

	loose, err := NewDetector(store, DetectorConfig{Prev: LessOrEqual}).FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"EQ"}, loose)

	strict, err := NewDetector(store, DetectorConfig{Prev: LessThan}).FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)
	assert.Empty(t, strict)
}

func TestDetector_ScanReturnsEveryEvaluation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seed(t, store, "B", append(repeat(10, 9), 8, 13)...)
	seed(t, store, "A", 1, 2)

	detector := NewDetector(store, DetectorConfig{})
	evals, err := detector.Scan(ctx, detector.Rule(2, 3))
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, "A", evals[0].Symbol)
	assert.Equal(t, InsufficientHistory, evals[0].Outcome)
	assert.Equal(t, "B", evals[1].Symbol)
	assert.Equal(t, Crossed, evals[1].Outcome)
}

func TestDetector_ParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for i := 0; i < 40; i++ {
		symbol := fmt.Sprintf("S%02d", i)
		if i%3 == 0 {
			seed(t, store, symbol, append(repeat(10, 9), 8, 13)...)
		} else {
			seed(t, store, symbol, repeat(10, 11)...)
		}
	}

	sequential, err := NewDetector(store, DetectorConfig{Workers: 1}).FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)
	parallel, err := NewDetector(store, DetectorConfig{Workers: 8, Engine: indicator.TechanEngine{}}).FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)

	assert.Len(t, sequential, 14)
	assert.Equal(t, sequential, parallel)
}

func TestDetector_DoesNotModifyStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seed(t, store, "AAA", append(repeat(10, 9), 8, 13)...)

	before, err := store.ReadHistory(ctx, "AAA")
	require.NoError(t, err)

	_, err = NewDetector(store, DetectorConfig{}).FindCrossovers(ctx, 2, 3)
	require.NoError(t, err)

	after, err := store.ReadHistory(ctx, "AAA")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDetector_StorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	store := storage.NewMemoryStore()
	seed(t, store, "AAA", 1, 2, 3)
	store.ReadErr = storage.ErrStorageUnavailable

	_, err := NewDetector(store, DetectorConfig{}).FindCrossovers(ctx, 2, 3)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)

	store = storage.NewMemoryStore()
	store.ListErr = storage.ErrStorageUnavailable
	_, err = NewDetector(store, DetectorConfig{}).FindCrossovers(ctx, 2, 3)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
}

func TestDetector_InvalidWindows(t *testing.T) {
	_, err := NewDetector(storage.NewMemoryStore(), DetectorConfig{}).FindCrossovers(context.Background(), 0, 50)
	assert.ErrorIs(t, err, models.ErrInvalidWindow)
}
