package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
)

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_events_published_total",
			Help: "Total number of crossover events published",
		},
		[]string{"stream"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossover_events_publish_errors_total",
			Help: "Total number of crossover event publish errors",
		},
		[]string{"stream"},
	)
)

// Publisher announces detected crossovers
type Publisher interface {
	PublishCrossovers(ctx context.Context, crossovers []*models.Crossover) error
	Close() error
}

// NopPublisher discards events; used when Redis is not configured
type NopPublisher struct{}

func (NopPublisher) PublishCrossovers(ctx context.Context, crossovers []*models.Crossover) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

// streamClient is the part of *redis.Client the publisher needs
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisPublisher appends one stream entry per crossover
type RedisPublisher struct {
	client streamClient
	stream string
}

// New returns a RedisPublisher when cfg enables Redis, otherwise a NopPublisher
func New(ctx context.Context, cfg config.RedisConfig) (Publisher, error) {
	if !cfg.Enabled() {
		return NopPublisher{}, nil
	}
	return NewRedisPublisher(ctx, cfg)
}

// NewRedisPublisher connects to Redis and verifies the connection
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("stream", cfg.Stream),
	)

	return &RedisPublisher{client: rdb, stream: cfg.Stream}, nil
}

// PublishCrossovers XADDs each crossover to the configured stream
func (p *RedisPublisher) PublishCrossovers(ctx context.Context, crossovers []*models.Crossover) error {
	for _, c := range crossovers {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal crossover: %w", err)
		}

		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				"event_id":     uuid.New().String(),
				"symbol":       c.Symbol,
				"short_window": strconv.Itoa(c.ShortWindow),
				"long_window":  strconv.Itoa(c.LongWindow),
				"date":         c.Date.Format(models.DateLayout),
				"short_ma":     strconv.FormatFloat(c.ShortMA, 'f', -1, 64),
				"long_ma":      strconv.FormatFloat(c.LongMA, 'f', -1, 64),
				"detected_at":  c.DetectedAt.UTC().Format(time.RFC3339),
				"payload":      string(payload),
			},
		}).Err()
		if err != nil {
			publishErrors.WithLabelValues(p.stream).Inc()
			return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
		}
		publishTotal.WithLabelValues(p.stream).Inc()
	}

	if len(crossovers) > 0 {
		logger.WithContext(ctx).Info("Published crossover events",
			logger.String("stream", p.stream),
			logger.Int("count", len(crossovers)),
		)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
