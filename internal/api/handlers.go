package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/internal/crossover"
	"github.com/mohamedkhairy/golden-cross/internal/ingest"
	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/internal/notify"
	"github.com/mohamedkhairy/golden-cross/internal/storage"
	"github.com/mohamedkhairy/golden-cross/internal/symbols"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

// SymbolHandler serves stored symbols and their history
type SymbolHandler struct {
	store storage.BarStore
}

// NewSymbolHandler creates a new symbol handler
func NewSymbolHandler(store storage.BarStore) *SymbolHandler {
	return &SymbolHandler{store: store}
}

// ListSymbols handles GET /api/v1/symbols
func (h *SymbolHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListSymbols(r.Context())
	if err != nil {
		respondWithStoreError(w, err, "Failed to retrieve symbols")
		return
	}
	sort.Strings(list)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": list,
		"count":   len(list),
	})
}

// GetBars handles GET /api/v1/symbols/{symbol}/bars
// An optional limit query parameter keeps only the most recent bars.
func (h *SymbolHandler) GetBars(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	bars, err := h.store.ReadHistory(r.Context(), symbol)
	if err != nil {
		respondWithStoreError(w, err, "Failed to retrieve bars")
		return
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"bars":   bars,
		"count":  len(bars),
	})
}

// CrossoverHandler runs golden-cross scans
type CrossoverHandler struct {
	detector  *crossover.Detector
	defaults  config.ScannerConfig
	publisher notify.Publisher
	now       func() time.Time
}

// NewCrossoverHandler creates a new crossover handler. publisher may be nil.
func NewCrossoverHandler(detector *crossover.Detector, defaults config.ScannerConfig, publisher notify.Publisher) *CrossoverHandler {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &CrossoverHandler{
		detector:  detector,
		defaults:  defaults,
		publisher: publisher,
		now:       time.Now,
	}
}

type crossoverResponse struct {
	Short      int                 `json:"short"`
	Long       int                 `json:"long"`
	Prev       string              `json:"prev_comparison"`
	Symbols    []string            `json:"symbols"`
	Count      int                 `json:"count"`
	Crossovers []*models.Crossover `json:"crossovers"`
	Message    string              `json:"message,omitempty"`
}

// FindCrossovers handles GET /api/v1/crossovers?short=&long=&strict=&publish=
func (h *CrossoverHandler) FindCrossovers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	short, err := intParam(q.Get("short"), h.defaults.ShortWindow)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "short must be a positive integer")
		return
	}
	long, err := intParam(q.Get("long"), h.defaults.LongWindow)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "long must be a positive integer")
		return
	}
	strict, err := boolParam(q.Get("strict"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "strict must be a boolean")
		return
	}
	publish, err := boolParam(q.Get("publish"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "publish must be a boolean")
		return
	}

	rule := h.detector.Rule(short, long)
	if strict {
		rule.Prev = crossover.LessThan
	}

	evals, err := h.detector.Scan(r.Context(), rule)
	if err != nil {
		if errors.Is(err, models.ErrInvalidWindow) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithStoreError(w, err, "Failed to scan for crossovers")
		return
	}

	detectedAt := h.now().UTC()
	resp := crossoverResponse{
		Short:      rule.Short,
		Long:       rule.Long,
		Prev:       string(rule.Prev),
		Symbols:    []string{},
		Crossovers: []*models.Crossover{},
	}
	for _, e := range evals {
		if e.Outcome == crossover.Crossed {
			resp.Symbols = append(resp.Symbols, e.Symbol)
			resp.Crossovers = append(resp.Crossovers, e.Crossover(rule, detectedAt))
		}
	}
	resp.Count = len(resp.Symbols)
	if resp.Count == 0 {
		resp.Message = crossover.NoCrossoversMessage
	}

	if publish && resp.Count > 0 {
		if err := h.publisher.PublishCrossovers(r.Context(), resp.Crossovers); err != nil {
			logger.Warn("Failed to publish crossovers", logger.ErrorField(err))
			respondWithError(w, http.StatusBadGateway, "Failed to publish crossovers")
			return
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// IngestHandler triggers downloads. Only one run is allowed at a time so
// the runner stays the single writer per symbol.
type IngestHandler struct {
	runner   *ingest.Runner
	defaults config.MarketDataConfig
	mu       sync.Mutex
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(runner *ingest.Runner, defaults config.MarketDataConfig) *IngestHandler {
	return &IngestHandler{runner: runner, defaults: defaults}
}

type ingestRequest struct {
	Symbols []string `json:"symbols"`
}

type ingestFailure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

type ingestResponse struct {
	*ingest.Report
	Succeeded int             `json:"succeeded"`
	Failures  []ingestFailure `json:"failures"`
}

// RunIngest handles POST /api/v1/ingest
// The body may list symbols; otherwise the configured symbols are used.
func (h *IngestHandler) RunIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	list := symbols.Dedupe(req.Symbols)
	if len(list) == 0 {
		resolved, err := symbols.Resolve(h.defaults)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "No symbols given and none configured")
			return
		}
		list = resolved
	}

	if !h.mu.TryLock() {
		respondWithError(w, http.StatusConflict, "An ingest run is already in progress")
		return
	}
	defer h.mu.Unlock()

	report, err := h.runner.Run(r.Context(), list)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			respondWithError(w, http.StatusServiceUnavailable, "Ingest canceled")
			return
		}
		respondWithStoreError(w, err, "Ingest failed")
		return
	}

	resp := ingestResponse{
		Report:    report,
		Succeeded: report.Succeeded(),
		Failures:  make([]ingestFailure, 0, len(report.Failures)),
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, ingestFailure{Symbol: f.Symbol, Error: f.Err.Error()})
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func respondWithStoreError(w http.ResponseWriter, err error, message string) {
	logger.ErrorsTotal.WithLabelValues("api", "storage").Inc()
	logger.Error(message, logger.ErrorField(err))
	if errors.Is(err, storage.ErrStorageUnavailable) {
		respondWithError(w, http.StatusServiceUnavailable, message)
		return
	}
	respondWithError(w, http.StatusInternalServerError, message)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}

func boolParam(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
