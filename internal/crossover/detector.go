package crossover

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohamedkhairy/golden-cross/internal/storage"
	"github.com/mohamedkhairy/golden-cross/pkg/indicator"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

// DetectorConfig holds detector options
type DetectorConfig struct {
	Engine indicator.Engine
	Prev   Comparison
	// Workers bounds concurrent history reads. Values below 1 mean 1.
	Workers int
}

// Detector scans every stored symbol for golden crosses. It only reads
// from the store.
type Detector struct {
	store   storage.BarStore
	engine  indicator.Engine
	prev    Comparison
	workers int
}

// NewDetector creates a detector over store
func NewDetector(store storage.BarStore, cfg DetectorConfig) *Detector {
	engine := cfg.Engine
	if engine == nil {
		engine = indicator.NativeEngine{}
	}
	prev := cfg.Prev
	if prev == "" {
		prev = LessOrEqual
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Detector{
		store:   store,
		engine:  engine,
		prev:    prev,
		workers: workers,
	}
}

// Rule returns the rule the detector applies for the given windows
func (d *Detector) Rule(short, long int) Rule {
	return Rule{Short: short, Long: long, Prev: d.prev}
}

// FindCrossovers returns the sorted symbols whose short average crossed
// above the long average on the most recent bar.
func (d *Detector) FindCrossovers(ctx context.Context, short, long int) ([]string, error) {
	evals, err := d.Scan(ctx, d.Rule(short, long))
	if err != nil {
		return nil, err
	}

	symbols := []string{}
	for _, e := range evals {
		if e.Outcome == Crossed {
			symbols = append(symbols, e.Symbol)
		}
	}
	return symbols, nil
}

// Scan evaluates rule for every stored symbol and returns the evaluations
// sorted by symbol. Any storage error aborts the scan.
func (d *Detector) Scan(ctx context.Context, rule Rule) ([]Evaluation, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	symbols, err := d.store.ListSymbols(ctx)
	if err != nil {
		scanErrors.Inc()
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	results := make([]Evaluation, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			history, err := d.store.ReadHistory(gctx, symbol)
			if err != nil {
				return fmt.Errorf("failed to read history for %s: %w", symbol, err)
			}
			eval, err := Evaluate(symbol, history, rule, d.engine)
			if err != nil {
				return err
			}
			results[i] = eval
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		scanErrors.Inc()
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Symbol < results[j].Symbol
	})

	crossed := 0
	for _, e := range results {
		symbolsEvaluated.WithLabelValues(string(e.Outcome)).Inc()
		switch e.Outcome {
		case Crossed:
			crossed++
		case InsufficientHistory:
			logger.Debug("Skipping symbol with insufficient history",
				logger.String("symbol", e.Symbol),
				logger.Int("bars", e.Bars),
				logger.Int("long_window", rule.Long),
			)
		}
	}

	duration := time.Since(start)
	scanDuration.Observe(duration.Seconds())

	logger.WithContext(ctx).Info("Crossover scan completed",
		logger.Int("short_window", rule.Short),
		logger.Int("long_window", rule.Long),
		logger.String("prev_comparison", string(rule.Prev)),
		logger.String("engine", d.engine.Name()),
		logger.Int("symbols", len(results)),
		logger.Int("crossed", crossed),
		logger.Duration("duration", duration),
	)

	return results, nil
}
