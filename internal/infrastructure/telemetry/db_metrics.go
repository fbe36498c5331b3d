package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetrics records query counts, latency and connection pool state.
type DBMetrics struct {
	queryTotal      *Counter
	queryDuration   *Histogram
	slowQueryTotal  *Counter
	slowQueryThresh time.Duration
	registration    metric.Registration
	logger          *zap.Logger
}

// RegisterDBMetrics creates the database instruments on meter, observes the
// pool of sqlDB and installs query callbacks on db.
func RegisterDBMetrics(db *gorm.DB, sqlDB *sql.DB, meter metric.Meter, slowQueryThresh time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slowQueryThresh <= 0 {
		slowQueryThresh = 200 * time.Millisecond
	}

	m := &DBMetrics{slowQueryThresh: slowQueryThresh, logger: logger}

	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}

	if sqlDB != nil {
		if err := m.observePool(meter, sqlDB); err != nil {
			return nil, err
		}
	}

	if db != nil {
		if err := registerHooks(db, "fees_metrics", "", markQueryStart, m.afterQuery); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *DBMetrics) observePool(meter metric.Meter, sqlDB *sql.DB) error {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		return nil
	}, conns, maxConns)
	return err
}

// RecordQuery records one finished statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		outcome = OutcomeFailed
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation), AttrDBTable.String(table), AttrOutcome.String(outcome))
	m.queryDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation), AttrDBTable.String(table))
	if d > m.slowQueryThresh {
		m.slowQueryTotal.Inc(ctx, AttrDBOperation.String(operation), AttrDBTable.String(table))
	}
}

func (m *DBMetrics) afterQuery(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	elapsed, ok := queryElapsed(ctx)
	if !ok {
		return
	}
	m.RecordQuery(ctx, operationOf(db.Statement.SQL.String()), db.Statement.Table, elapsed, db.Error)
}

// Stop unregisters the pool observer.
func (m *DBMetrics) Stop() {
	if m.registration == nil {
		return
	}
	if err := m.registration.Unregister(); err != nil {
		m.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
	}
	m.registration = nil
}

// operationOf returns the lower-case SQL verb of statement.
func operationOf(statement string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(statement), " ")
	switch v := strings.ToLower(verb); v {
	case "select", "insert", "update", "delete":
		return v
	default:
		return "other"
	}
}
