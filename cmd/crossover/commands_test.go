package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/golden-cross/internal/crossover"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "prices.db"))
	t.Setenv("DB_CONNECT_MAX_ATTEMPTS", "1")
	t.Setenv("MARKET_DATA_PROVIDER", "mock")
	t.Setenv("SYMBOLS_FILE", filepath.Join(t.TempDir(), "missing.csv"))
	t.Setenv("MARKET_DATA_SYMBOLS", "AAPL,MSFT")
	t.Setenv("INGEST_LOOKBACK_DAYS", "120")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	err := cmd.Run(context.Background(), append([]string{"crossover"}, args...))
	return out.String(), err
}

func TestInit(t *testing.T) {
	setTestEnv(t)

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "stock_prices is ready")
}

func TestDownloadThenQuery(t *testing.T) {
	setTestEnv(t)

	out, err := run(t, "download")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 2 of 2 symbols")

	// a second run stores nothing new
	out, err = run(t, "download")
	require.NoError(t, err)
	assert.Contains(t, out, ", 0 new bars")

	out, err = run(t, "symbols")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, strings.Fields(out))

	out, err = run(t, "history", "--limit", "3", "AAPL")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))

	out, err = run(t, "history", "NOPE")
	require.NoError(t, err)
	assert.Contains(t, out, "No bars stored for NOPE")
}

func TestDownload_SymbolFlagOverridesConfig(t *testing.T) {
	setTestEnv(t)

	out, err := run(t, "download", "--symbol", "TSLA,NVDA", "--days", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 2 of 2 symbols")

	out, err = run(t, "symbols")
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "TSLA"}, strings.Fields(out))
}

func TestScan_EmptyStorePrintsMessage(t *testing.T) {
	setTestEnv(t)

	out, err := run(t, "scan", "--short", "2", "--long", "3")
	require.NoError(t, err)
	assert.Equal(t, crossover.NoCrossoversMessage+"\n", out)
}

func TestScan_InvalidWindow(t *testing.T) {
	setTestEnv(t)

	_, err := run(t, "scan", "--short", "0", "--long", "3")
	assert.Error(t, err)
}

func TestHistory_RequiresSymbol(t *testing.T) {
	setTestEnv(t)

	_, err := run(t, "history")
	assert.Error(t, err)
}

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, splitSymbols([]string{"AAPL, MSFT", "GOOG", "AAPL", ""}))
	assert.Empty(t, splitSymbols(nil))
}
