package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router serves
type Handlers struct {
	Symbols    *SymbolHandler
	Crossovers *CrossoverHandler
	Ingest     *IngestHandler
	// Ready reports whether the backing store answers
	Ready func(ctx context.Context) error
}

// NewRouter builds the HTTP handler for the REST service
func NewRouter(h Handlers) http.Handler {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/symbols", h.Symbols.ListSymbols).Methods(http.MethodGet)
	v1.HandleFunc("/symbols/{symbol}/bars", h.Symbols.GetBars).Methods(http.MethodGet)
	v1.HandleFunc("/crossovers", h.Crossovers.FindCrossovers).Methods(http.MethodGet)
	if h.Ingest != nil {
		v1.HandleFunc("/ingest", h.Ingest.RunIngest).Methods(http.MethodPost)
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if h.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.Ready(ctx); err != nil {
				respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler())

	// route-aware middleware runs after matching so metrics carry the template
	router.Use(mux.MiddlewareFunc(ChainMiddleware(LoggingMiddleware(), ErrorHandlingMiddleware())))

	return CORSMiddleware()(router)
}
