package symbols

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

// ErrNoSymbols is returned when neither the file nor the environment names a symbol
var ErrNoSymbols = errors.New("no symbols configured")

const symbolColumn = "symbol"

// LoadFile reads symbols from path
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a CSV with a "Symbol" header column, or one symbol per line
// when no such header exists. Blank entries and '#' comments are ignored.
func Parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse symbols: %w", err)
	}
	if len(records) == 0 {
		return []string{}, nil
	}

	column := 0
	start := 0
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), symbolColumn) {
			column = i
			start = 1
			break
		}
	}

	out := make([]string, 0, len(records)-start)
	for _, record := range records[start:] {
		if column < len(record) {
			out = append(out, record[column])
		}
	}
	return Dedupe(out), nil
}

// Dedupe trims entries and drops blanks and repeats, keeping first-seen order
func Dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Resolve merges the symbols file with MARKET_DATA_SYMBOLS. A missing file
// is tolerated when the environment lists symbols.
func Resolve(cfg config.MarketDataConfig) ([]string, error) {
	var fromFile []string
	if cfg.SymbolsFile != "" {
		loaded, err := LoadFile(cfg.SymbolsFile)
		switch {
		case err == nil:
			fromFile = loaded
		case errors.Is(err, fs.ErrNotExist) && len(cfg.Symbols) > 0:
			logger.Warn("Symbols file not found, using configured symbols only",
				logger.String("path", cfg.SymbolsFile),
			)
		default:
			return nil, err
		}
	}

	merged := Dedupe(append(fromFile, cfg.Symbols...))
	if len(merged) == 0 {
		return nil, ErrNoSymbols
	}
	return merged, nil
}
