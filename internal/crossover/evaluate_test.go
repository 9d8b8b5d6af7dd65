package crossover

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/pkg/indicator"
)

func history(symbol string, closes ...float64) []*models.Bar {
	bars := make([]*models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = &models.Bar{
			Symbol: symbol,
			Date:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		rule   Rule
		want   Outcome
	}{
		{
			name:   "touch on last bar is not a cross",
			closes: append(repeat(10, 9), 8, 12),
			rule:   Rule{Short: 2, Long: 3, Prev: LessOrEqual},
			want:   NotCrossed,
		},
		{
			name:   "short rises above long",
			closes: append(repeat(10, 9), 8, 13),
			rule:   Rule{Short: 2, Long: 3, Prev: LessOrEqual},
			want:   Crossed,
		},
		{
			name:   "equal at prev counts with lte",
			closes: []float64{10, 10, 10, 13},
			rule:   Rule{Short: 2, Long: 3, Prev: LessOrEqual},
			want:   Crossed,
		},
		{
			name:   "equal at prev rejected with lt",
			closes: []float64{10, 10, 10, 13},
			rule:   Rule{Short: 2, Long: 3, Prev: LessThan},
			want:   NotCrossed,
		},
		{
			name:   "already above at prev",
			closes: []float64{1, 2, 3, 4, 5, 6},
			rule:   Rule{Short: 2, Long: 3, Prev: LessOrEqual},
			want:   NotCrossed,
		},
		{
			name:   "flat series never crosses",
			closes: repeat(50, 30),
			rule:   Rule{Short: 5, Long: 10, Prev: LessOrEqual},
			want:   NotCrossed,
		},
		{
			name:   "decreasing series never crosses",
			closes: []float64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11},
			rule:   Rule{Short: 2, Long: 4, Prev: LessOrEqual},
			want:   NotCrossed,
		},
		{
			name:   "fewer bars than long window",
			closes: []float64{1, 2, 3},
			rule:   Rule{Short: 2, Long: 5, Prev: LessOrEqual},
			want:   InsufficientHistory,
		},
		{
			name:   "exactly long window bars leaves prev undefined",
			closes: []float64{10, 10, 8, 13},
			rule:   Rule{Short: 2, Long: 4, Prev: LessOrEqual},
			want:   InsufficientHistory,
		},
		{
			name:   "short window larger than history",
			closes: []float64{10, 10, 10, 7, 9},
			rule:   Rule{Short: 5, Long: 2, Prev: LessOrEqual},
			want:   InsufficientHistory,
		},
		{
			name:   "short window at or above long window is evaluated",
			closes: []float64{10, 10, 10, 7},
			rule:   Rule{Short: 3, Long: 2, Prev: LessOrEqual},
			want:   Crossed,
		},
		{
			name:   "empty history",
			closes: nil,
			rule:   Rule{Short: 1, Long: 1, Prev: LessOrEqual},
			want:   InsufficientHistory,
		},
	}

	engines := []indicator.Engine{indicator.NativeEngine{}, indicator.TechanEngine{}}

	for _, tt := range tests {
		for _, engine := range engines {
			t.Run(tt.name+"/"+engine.Name(), func(t *testing.T) {
				eval, err := Evaluate("TEST", history("TEST", tt.closes...), tt.rule, engine)
				require.NoError(t, err)
				assert.Equal(t, tt.want, eval.Outcome)
				assert.Equal(t, "TEST", eval.Symbol)
				assert.Equal(t, len(tt.closes), eval.Bars)
			})
		}
	}
}

func TestEvaluate_ReportsAverages(t *testing.T) {
	bars := history("AAPL", append(repeat(10, 9), 8, 13)...)

	eval, err := Evaluate("AAPL", bars, Rule{Short: 2, Long: 3}, indicator.NativeEngine{})
	require.NoError(t, err)

	assert.Equal(t, Crossed, eval.Outcome)
	assert.Equal(t, 9.0, eval.ShortPrev)
	assert.InDelta(t, 28.0/3.0, eval.LongPrev, 1e-12)
	assert.Equal(t, 10.5, eval.ShortLast)
	assert.InDelta(t, 31.0/3.0, eval.LongLast, 1e-12)
	assert.Equal(t, bars[len(bars)-1].Date, eval.Date)

	c := eval.Crossover(Rule{Short: 2, Long: 3}, time.Unix(0, 0))
	assert.Equal(t, "AAPL", c.Symbol)
	assert.Equal(t, 2, c.ShortWindow)
	assert.Equal(t, 3, c.LongWindow)
	assert.Equal(t, 10.5, c.ShortMA)
}

func TestEvaluate_InvalidWindow(t *testing.T) {
	_, err := Evaluate("AAPL", history("AAPL", 1, 2, 3), Rule{Short: 0, Long: 3}, indicator.NativeEngine{})
	assert.ErrorIs(t, err, models.ErrInvalidWindow)
}

func TestParseComparison(t *testing.T) {
	c, err := ParseComparison("")
	require.NoError(t, err)
	assert.Equal(t, LessOrEqual, c)

	c, err = ParseComparison("lt")
	require.NoError(t, err)
	assert.Equal(t, LessThan, c)

	_, err = ParseComparison("gt")
	assert.Error(t, err)
}
