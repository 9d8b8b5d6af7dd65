package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/mohamedkhairy/golden-cross/internal/fetcher"
	"github.com/mohamedkhairy/golden-cross/internal/storage"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

var (
	ingestFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_fetch_failures_total",
			Help: "Per-symbol fetch failures during ingest",
		},
		[]string{"provider"},
	)

	ingestBarsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_bars_inserted_total",
			Help: "Bars newly inserted by ingest runs",
		},
	)

	ingestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Duration of ingest runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)
)

// FetchFailure records a symbol whose history could not be fetched.
// The run continues past it.
type FetchFailure struct {
	Symbol string
	Err    error
}

func (f *FetchFailure) Error() string {
	return fmt.Sprintf("fetch %s: %v", f.Symbol, f.Err)
}

func (f *FetchFailure) Unwrap() error {
	return f.Err
}

// SymbolResult is the outcome for one successfully stored symbol
type SymbolResult struct {
	Symbol   string `json:"symbol"`
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
}

// Report summarizes an ingest run
type Report struct {
	RunID      string          `json:"run_id"`
	Provider   string          `json:"provider"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Requested  int             `json:"requested"`
	Results    []SymbolResult  `json:"results"`
	Failures   []*FetchFailure `json:"-"`
	Fetched    int             `json:"fetched"`
	Inserted   int             `json:"inserted"`
}

// Succeeded returns the number of symbols stored without a fetch failure
func (r *Report) Succeeded() int {
	return len(r.Results)
}

// FailedSymbols lists the symbols that failed to fetch
func (r *Report) FailedSymbols() []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.Symbol
	}
	return out
}

// Progress is called once per finished symbol; err is the fetch failure, if any
type Progress func(symbol string, done, total int, err error)

// Config holds runner options
type Config struct {
	LookbackDays int
	Workers      int
	Progress     Progress
	// Now overrides the clock, for tests
	Now func() time.Time
}

// Runner downloads history for a list of symbols and stores it. It is the
// only writer for the symbols it is given.
type Runner struct {
	fetcher fetcher.Fetcher
	store   storage.BarStore
	config  Config
}

// NewRunner creates a Runner
func NewRunner(f fetcher.Fetcher, store storage.BarStore, cfg Config) *Runner {
	if cfg.LookbackDays < 1 {
		cfg.LookbackDays = 365
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Runner{fetcher: f, store: store, config: cfg}
}

// Run fetches and stores every symbol. Fetch failures are collected in the
// report; a storage error aborts the run and is returned.
func (r *Runner) Run(ctx context.Context, symbols []string) (*Report, error) {
	now := r.config.Now()
	report := &Report{
		RunID:     uuid.New().String(),
		Provider:  r.fetcher.Name(),
		StartedAt: now,
		Requested: len(symbols),
		Results:   []SymbolResult{},
		Failures:  []*FetchFailure{},
	}
	ctx = logger.WithRunID(ctx, report.RunID)
	log := logger.WithContext(ctx)

	to := now
	from := now.AddDate(0, 0, -r.config.LookbackDays)

	log.Info("Starting ingest",
		logger.String("provider", report.Provider),
		logger.Int("symbols", len(symbols)),
		logger.Int("lookback_days", r.config.LookbackDays),
		logger.Int("workers", r.config.Workers),
	)

	results := make([]*SymbolResult, len(symbols))
	failures := make([]*FetchFailure, len(symbols))

	var mu sync.Mutex
	done := 0
	finish := func(symbol string, err error) {
		mu.Lock()
		done++
		n := done
		mu.Unlock()
		if r.config.Progress != nil {
			r.config.Progress(symbol, n, len(symbols), err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			bars, err := r.fetcher.FetchDaily(gctx, symbol, from, to)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failure := &FetchFailure{Symbol: symbol, Err: err}
				failures[i] = failure
				ingestFetchFailures.WithLabelValues(report.Provider).Inc()
				log.Warn("Failed to fetch symbol, skipping",
					logger.String("symbol", symbol),
					logger.ErrorField(err),
				)
				finish(symbol, failure)
				return nil
			}

			inserted, err := r.store.UpsertBars(gctx, bars)
			if err != nil {
				return fmt.Errorf("failed to store bars for %s: %w", symbol, err)
			}

			results[i] = &SymbolResult{Symbol: symbol, Fetched: len(bars), Inserted: inserted}
			log.Debug("Stored symbol history",
				logger.String("symbol", symbol),
				logger.Int("fetched", len(bars)),
				logger.Int("inserted", inserted),
			)
			finish(symbol, nil)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("Ingest aborted", logger.ErrorField(err))
		return nil, err
	}

	for i := range symbols {
		if res := results[i]; res != nil {
			report.Results = append(report.Results, *res)
			report.Fetched += res.Fetched
			report.Inserted += res.Inserted
		}
		if f := failures[i]; f != nil {
			report.Failures = append(report.Failures, f)
		}
	}
	report.FinishedAt = r.config.Now()

	ingestBarsInserted.Add(float64(report.Inserted))
	ingestRunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	log.Info("Ingest completed",
		logger.Int("succeeded", report.Succeeded()),
		logger.Int("failed", len(report.Failures)),
		logger.Int("fetched", report.Fetched),
		logger.Int("inserted", report.Inserted),
	)

	return report, nil
}
