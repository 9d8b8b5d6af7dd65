package indicator

import (
	"errors"
	"testing"
	"time"

	"github.com/mohamedkhairy/golden-cross/internal/models"
)

func dailyBar(i int, close float64) *models.Bar {
	return &models.Bar{
		Symbol: "AAPL",
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: 100,
	}
}

func TestSMA_NewSMA(t *testing.T) {
	sma, err := NewSMA(20)
	if err != nil {
		t.Fatalf("Failed to create SMA: %v", err)
	}
	if sma.Name() != "sma_20" {
		t.Errorf("Expected name 'sma_20', got '%s'", sma.Name())
	}

	_, err = NewSMA(0)
	if !errors.Is(err, models.ErrInvalidWindow) {
		t.Errorf("Expected ErrInvalidWindow for period < 1, got %v", err)
	}
}

func TestSMA_Update(t *testing.T) {
	sma, _ := NewSMA(5)

	for i := 0; i < 4; i++ {
		val, err := sma.Update(dailyBar(i, 100.0+float64(i)))
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if sma.IsReady() {
			t.Errorf("SMA should not be ready after %d bars", i+1)
		}
		if val != 0 {
			t.Errorf("Expected 0 for incomplete SMA, got %f", val)
		}
	}

	val, err := sma.Update(dailyBar(4, 104.0))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !sma.IsReady() {
		t.Error("SMA should be ready after 5 bars")
	}
	if val != 102.0 {
		t.Errorf("Expected SMA 102, got %f", val)
	}
}

func TestSMA_NilBar(t *testing.T) {
	sma, _ := NewSMA(3)
	if _, err := sma.Update(nil); err == nil {
		t.Error("Expected error for nil bar")
	}
}

func TestSMA_RollingWindow(t *testing.T) {
	sma, _ := NewSMA(5)

	for i := 0; i < 10; i++ {
		_, _ = sma.Update(dailyBar(i, 100.0+float64(i)))
	}

	// last 5 closes: 105..109
	val, _ := sma.Value()
	if val != 107.0 {
		t.Errorf("Expected SMA 107, got %f", val)
	}
}

func TestSMA_Reset(t *testing.T) {
	sma, _ := NewSMA(5)

	for i := 0; i < 10; i++ {
		_, _ = sma.Update(dailyBar(i, 100.0+float64(i)))
	}

	sma.Reset()

	if sma.IsReady() {
		t.Error("SMA should not be ready after reset")
	}
	if val, err := sma.Value(); err == nil {
		t.Errorf("Expected error after reset, got value %f", val)
	}
}

func TestSMA_ImplementsCalculator(t *testing.T) {
	var _ Calculator = (*SMA)(nil)
}
