package fetcher

import (
	"context"
	"fmt"
	"math"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	barmodels "github.com/mohamedkhairy/golden-cross/internal/models"
)

// aggsIterator is the subset of the polygon iterator the fetcher uses
type aggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// aggsAPI lists aggregate bars; satisfied by polygonAPI and test fakes
type aggsAPI interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) aggsIterator
}

type polygonAPI struct {
	client *polygon.Client
}

func (p polygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) aggsIterator {
	return p.client.ListAggs(ctx, params, options...)
}

// PolygonFetcher reads daily aggregates from Polygon.io
type PolygonFetcher struct {
	api aggsAPI
}

// NewPolygonFetcher creates a Polygon fetcher
func NewPolygonFetcher(apiKey string) (*PolygonFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	return &PolygonFetcher{api: polygonAPI{client: polygon.New(apiKey)}}, nil
}

func newPolygonFetcherWithAPI(api aggsAPI) *PolygonFetcher {
	return &PolygonFetcher{api: api}
}

func (p *PolygonFetcher) Name() string {
	return "polygon"
}

// FetchDaily fetches adjusted daily aggregates in [from, to]
func (p *PolygonFetcher) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]*barmodels.Bar, error) {
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithAdjusted(true).WithLimit(50000)

	iter := p.api.ListAggs(ctx, params)

	bars := make([]*barmodels.Bar, 0, 256)
	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, &barmodels.Bar{
			Symbol: symbol,
			// daily aggregates start at midnight US/Eastern, which is the same UTC date
			Date:   barmodels.NormalizeDate(time.Time(agg.Timestamp).UTC()),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: int64(math.Round(agg.Volume)),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polygon aggregates for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no aggregates for %s", ErrNoData, symbol)
	}

	return sortAndDedupe(bars), nil
}
