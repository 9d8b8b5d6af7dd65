package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/mohamedkhairy/golden-cross/internal/config"
	"github.com/mohamedkhairy/golden-cross/internal/models"
	"github.com/mohamedkhairy/golden-cross/pkg/logger"
	"github.com/mohamedkhairy/golden-cross/pkg/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	_ "modernc.org/sqlite" // SQLite driver
)

var (
	storeOperationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bar_store_operation_latency_seconds",
			Help:    "Latency of bar store operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	storeRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bar_store_rows_total",
			Help: "Rows offered to the bar store by outcome",
		},
		[]string{"result"}, // "inserted", "conflict", "duplicate" or "invalid"
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bar_store_errors_total",
			Help: "Total number of bar store errors",
		},
		[]string{"operation"},
	)

	storeConnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bar_store_connect_attempts_total",
			Help: "Total number of connection attempts to the bar store",
		},
	)
)

const (
	pingTimeout = 5 * time.Second

	// bind parameters per inserted row
	columnsPerRow = 7
	// stays under the SQLite (32766) and PostgreSQL (65535) bind limits
	maxParams = 32000
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var barColumns = []string{"symbol", "date", "open", "high", "low", "close", "volume"}

type dialect struct {
	driverName  string
	placeholder squirrel.PlaceholderFormat
	createTable string
}

var dialects = map[string]dialect{
	"postgres": {
		driverName:  "postgres",
		placeholder: squirrel.Dollar,
		createTable: `
			CREATE TABLE IF NOT EXISTS %s (
				symbol TEXT NOT NULL,
				date DATE NOT NULL,
				open DOUBLE PRECISION,
				high DOUBLE PRECISION,
				low DOUBLE PRECISION,
				close DOUBLE PRECISION,
				volume BIGINT,
				PRIMARY KEY (symbol, date)
			)`,
	},
	"sqlite": {
		driverName:  "sqlite",
		placeholder: squirrel.Question,
		createTable: `
			CREATE TABLE IF NOT EXISTS %s (
				symbol TEXT NOT NULL,
				date TEXT NOT NULL,
				open REAL,
				high REAL,
				low REAL,
				close REAL,
				volume INTEGER,
				PRIMARY KEY (symbol, date)
			)`,
	},
}

// SQLStore implements BarStore on PostgreSQL or SQLite
type SQLStore struct {
	db        *sql.DB
	dialect   dialect
	builder   squirrel.StatementBuilderType
	table     string
	batchSize int
	policy    retry.Policy
}

// Open opens the configured database and waits for it to answer a ping,
// retrying according to policy. ErrStorageUnavailable is returned once the
// attempts are exhausted.
func Open(ctx context.Context, cfg config.DatabaseConfig, policy retry.Policy) (*SQLStore, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if !identifierPattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, cfg.Table)
	}

	db, err := sql.Open(d.driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database connection: %v", ErrStorageUnavailable, err)
	}

	if cfg.Driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConnections > 0 {
			db.SetMaxOpenConns(cfg.MaxConnections)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	batchSize := cfg.InsertBatchSize
	if batchSize <= 0 || batchSize*columnsPerRow > maxParams {
		batchSize = maxParams / columnsPerRow
	}

	s := &SQLStore{
		db:        db,
		dialect:   d,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(d.placeholder),
		table:     cfg.Table,
		batchSize: batchSize,
		policy:    policy,
	}

	if err := s.ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to bar store",
		logger.String("driver", cfg.Driver),
		logger.String("table", cfg.Table),
		logger.Int("insert_batch_size", batchSize),
	)

	return s, nil
}

func (s *SQLStore) ping(ctx context.Context) error {
	err := s.policy.Do(ctx, "bar store connect", func(ctx context.Context) error {
		storeConnectAttempts.Inc()
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return s.db.PingContext(pingCtx)
	})
	if err != nil {
		storeErrors.WithLabelValues("connect").Inc()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Ping checks the connection once, without retrying
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the bar table if missing
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if err := s.ping(ctx); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		storeOperationLatency.WithLabelValues("ensure_schema").Observe(time.Since(start).Seconds())
	}()

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.createTable, s.table)); err != nil {
		storeErrors.WithLabelValues("ensure_schema").Inc()
		return fmt.Errorf("%w: failed to create table %s: %v", ErrSchema, s.table, err)
	}

	logger.Debug("Schema ensured", logger.String("table", s.table))
	return nil
}

// UpsertBars inserts bars in one transaction, skipping rows whose
// (symbol, date) already exists.
func (s *SQLStore) UpsertBars(ctx context.Context, bars []*models.Bar) (int, error) {
	rows, rejected := prepareBars(bars)
	storeRowsTotal.WithLabelValues("invalid").Add(float64(rejected.invalid))
	storeRowsTotal.WithLabelValues("duplicate").Add(float64(rejected.duplicate))
	if len(rows) == 0 {
		return 0, nil
	}

	start := time.Now()
	defer func() {
		storeOperationLatency.WithLabelValues("upsert").Observe(time.Since(start).Seconds())
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		storeErrors.WithLabelValues("upsert").Inc()
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for offset := 0; offset < len(rows); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		query, args, err := s.insertQuery(rows[offset:end]).ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			storeErrors.WithLabelValues("upsert").Inc()
			return 0, fmt.Errorf("failed to insert bars: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		storeErrors.WithLabelValues("upsert").Inc()
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	storeRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
	storeRowsTotal.WithLabelValues("conflict").Add(float64(len(rows) - inserted))

	logger.Debug("Upserted bars",
		logger.Int("offered", len(bars)),
		logger.Int("inserted", inserted),
		logger.Int("invalid", rejected.invalid),
		logger.Int("duplicate", rejected.duplicate),
		logger.Duration("latency", time.Since(start)),
	)

	return inserted, nil
}

func (s *SQLStore) insertQuery(rows []*models.Bar) squirrel.InsertBuilder {
	q := s.builder.Insert(s.table).Columns(barColumns...)
	for _, b := range rows {
		q = q.Values(
			b.Symbol,
			b.Date.Format(models.DateLayout),
			b.Open,
			b.High,
			b.Low,
			b.Close,
			b.Volume,
		)
	}
	return q.Suffix("ON CONFLICT (symbol, date) DO NOTHING")
}

// ListSymbols returns the distinct stored symbols
func (s *SQLStore) ListSymbols(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer func() {
		storeOperationLatency.WithLabelValues("list_symbols").Observe(time.Since(start).Seconds())
	}()

	query, args, err := s.builder.Select("symbol").Distinct().From(s.table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		storeErrors.WithLabelValues("list_symbols").Inc()
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return symbols, nil
}

// ReadHistory returns a symbol's bars in ascending date order
func (s *SQLStore) ReadHistory(ctx context.Context, symbol string) ([]*models.Bar, error) {
	start := time.Now()
	defer func() {
		storeOperationLatency.WithLabelValues("read_history").Observe(time.Since(start).Seconds())
	}()

	query, args, err := s.builder.
		Select(barColumns...).
		From(s.table).
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		storeErrors.WithLabelValues("read_history").Inc()
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	bars := []*models.Bar{}
	for rows.Next() {
		var bar models.Bar
		if err := rows.Scan(
			&bar.Symbol,
			(*dateValue)(&bar.Date),
			&bar.Open,
			&bar.High,
			&bar.Low,
			&bar.Close,
			&bar.Volume,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, &bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bars, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

// batchRejects counts bars dropped from a batch before it reaches the store
type batchRejects struct {
	invalid   int
	duplicate int
}

// prepareBars drops invalid bars and repeated keys, keeping the first
// occurrence, and normalizes dates.
func prepareBars(bars []*models.Bar) ([]*models.Bar, batchRejects) {
	var rejected batchRejects
	seen := make(map[string]struct{}, len(bars))
	out := make([]*models.Bar, 0, len(bars))
	for _, bar := range bars {
		if bar == nil {
			rejected.invalid++
			continue
		}
		if err := bar.Validate(); err != nil {
			logger.Warn("Invalid bar, skipping",
				logger.ErrorField(err),
				logger.String("symbol", bar.Symbol),
			)
			rejected.invalid++
			continue
		}
		b := *bar
		b.Date = models.NormalizeDate(b.Date)
		key := b.Key()
		if _, dup := seen[key]; dup {
			rejected.duplicate++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, &b)
	}
	return out, rejected
}

// dateValue scans DATE columns from either driver: lib/pq yields time.Time,
// SQLite stores the YYYY-MM-DD text.
type dateValue time.Time

func (d *dateValue) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = dateValue(models.NormalizeDate(v))
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
}

func (d *dateValue) parse(s string) error {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	*d = dateValue(t)
	return nil
}
