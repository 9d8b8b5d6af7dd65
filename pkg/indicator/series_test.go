package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

func barsFromCloses(closes ...float64) []*models.Bar {
	bars := make([]*models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = dailyBar(i, c)
	}
	return bars
}

func TestSMASeries(t *testing.T) {
	series, err := SMASeries(barsFromCloses(1, 2, 3, 4, 5), 3)
	require.NoError(t, err)
	require.Len(t, series, 5)

	assert.False(t, series.Defined(0))
	assert.False(t, series.Defined(1))
	assert.Equal(t, 2.0, series[2].Unwrap())
	assert.Equal(t, 3.0, series[3].Unwrap())
	assert.Equal(t, 4.0, series[4].Unwrap())
}

func TestSMASeries_WindowLongerThanData(t *testing.T) {
	series, err := SMASeries(barsFromCloses(1, 2), 5)
	require.NoError(t, err)
	for i := range series {
		assert.True(t, series[i].IsNone())
	}
}

func TestSMASeries_WindowOne(t *testing.T) {
	series, err := SMASeries(barsFromCloses(7, 8, 9), 1)
	require.NoError(t, err)
	assert.Equal(t, 7.0, series[0].Unwrap())
	assert.Equal(t, 9.0, series[2].Unwrap())
}

func TestSMASeries_InvalidWindow(t *testing.T) {
	_, err := SMASeries(barsFromCloses(1), 0)
	assert.ErrorIs(t, err, models.ErrInvalidWindow)

	_, err = TechanSMASeries(nil, -1)
	assert.ErrorIs(t, err, models.ErrInvalidWindow)
}

func TestSeries_AtOutOfRange(t *testing.T) {
	series, err := SMASeries(barsFromCloses(1, 2, 3), 1)
	require.NoError(t, err)
	assert.True(t, series.At(-1).IsNone())
	assert.True(t, series.At(3).IsNone())
}

func TestRun_ResetsCalculator(t *testing.T) {
	sma, err := NewSMA(2)
	require.NoError(t, err)

	_, err = Run(sma, barsFromCloses(100, 200, 300))
	require.NoError(t, err)

	series, err := Run(sma, barsFromCloses(1, 3))
	require.NoError(t, err)
	assert.True(t, series[0].IsNone())
	assert.Equal(t, 2.0, series[1].Unwrap())
}

func TestRun_NilBar(t *testing.T) {
	sma, err := NewSMA(2)
	require.NoError(t, err)

	_, err = Run(sma, []*models.Bar{dailyBar(0, 1), nil})
	assert.ErrorContains(t, err, "sma_2")
}

func TestTechanMatchesNative(t *testing.T) {
	bars := barsFromCloses(10, 11, 12, 11, 10, 9, 12, 15, 14, 13, 16, 18)

	for _, window := range []int{1, 2, 3, 5, 12, 13} {
		native, err := NativeEngine{}.SMA(bars, window)
		require.NoError(t, err)
		techanSeries, err := TechanEngine{}.SMA(bars, window)
		require.NoError(t, err)

		require.Len(t, techanSeries, len(native))
		for i := range native {
			assert.Equal(t, native[i].IsSome(), techanSeries[i].IsSome(), "window %d index %d", window, i)
			if native[i].IsSome() {
				assert.InDelta(t, native[i].Unwrap(), techanSeries[i].Unwrap(), 1e-9, "window %d index %d", window, i)
			}
		}
	}
}

func TestTechanSMASeries_RejectsOutOfOrderBars(t *testing.T) {
	bars := []*models.Bar{dailyBar(1, 10), dailyBar(0, 11)}
	_, err := TechanSMASeries(bars, 2)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"native", "techan"}, r.List())

	engine, err := r.Get("techan")
	require.NoError(t, err)
	assert.Equal(t, "techan", engine.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)

	assert.Error(t, r.Register(NativeEngine{}))
	assert.Error(t, r.Register(nil))
}
