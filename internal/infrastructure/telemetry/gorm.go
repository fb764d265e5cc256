package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls database instrumentation.
type DBConfig struct {
	Tracing            bool   // register otelgorm spans
	DBName             string // db.name on spans
	LogFullSQL         bool   // keep bound query variables on spans
	SlowQueryThreshold time.Duration
}

// DBInstrumentation records GORM query metrics and, optionally, spans.
type DBInstrumentation struct {
	logger    *zap.Logger
	threshold time.Duration

	queryDuration *Histogram
	queryErrors   *Counter
	slowQueries   *Counter
	pool          metric.Registration
}

const startKey = "bizops:query_start"

// InstrumentDB attaches tracing and metrics callbacks to db. Close releases
// the connection-pool gauge.
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("failed to register otelgorm: %w", err)
		}
	}

	d := &DBInstrumentation{logger: logger, threshold: cfg.SlowQueryThreshold}
	var err error
	if d.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "bizops_db_query_duration_seconds",
		Description: "Duration of document store queries",
		Unit:        "s",
		Buckets:     DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if d.queryErrors, err = NewCounter(meter, "bizops_db_query_errors_total", "Document store queries that failed", "{queries}"); err != nil {
		return nil, err
	}
	if d.slowQueries, err = NewCounter(meter, "bizops_db_slow_queries_total", "Document store queries over the slow threshold", "{queries}"); err != nil {
		return nil, err
	}

	if err := d.registerCallbacks(db); err != nil {
		return nil, err
	}
	if err := d.observePool(db, meter); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.Tracing),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return d, nil
}

func (d *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	type registrar func(name string, fn func(*gorm.DB)) error
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after registrar
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.op
		if err := h.before("bizops:before_"+op, func(tx *gorm.DB) {
			tx.InstanceSet(startKey, time.Now())
		}); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", op, err)
		}
		if err := h.after("bizops:after_"+op, func(tx *gorm.DB) {
			d.record(tx, op)
		}); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", op, err)
		}
	}
	return nil
}

func (d *DBInstrumentation) record(tx *gorm.DB, op string) {
	v, ok := tx.InstanceGet(startKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)

	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	table := tx.Statement.Table
	attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(table)}

	d.queryDuration.RecordDuration(ctx, elapsed, attrs...)
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		d.queryErrors.Inc(ctx, attrs...)
	}
	if elapsed >= d.threshold {
		d.slowQueries.Inc(ctx, attrs...)
		d.logger.Warn("Slow query",
			zap.String("operation", op),
			zap.String("table", table),
			zap.Duration("duration", elapsed),
			zap.Int64("rows", tx.Statement.RowsAffected),
		)
	}
}

// observePool exports sql.DBStats as an observable gauge per pool state.
func (d *DBInstrumentation) observePool(db *gorm.DB, meter metric.Meter) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	conns, err := meter.Int64ObservableGauge("bizops_db_pool_connections",
		metric.WithDescription("Database connections by pool state"),
		metric.WithUnit("{connections}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pool gauge: %w", err)
	}

	d.pool, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, conns)
	if err != nil {
		return fmt.Errorf("failed to register pool callback: %w", err)
	}
	return nil
}

// Close stops observing the connection pool.
func (d *DBInstrumentation) Close() error {
	if d.pool == nil {
		return nil
	}
	return d.pool.Unregister()
}
