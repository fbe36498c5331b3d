package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing configuration.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bound variables in db.statement
	SlowQueryThresh time.Duration
	DBName          string
}

// DefaultDBTracingConfig returns tracing settings that keep query
// variables out of spans.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "school_fees",
	}
}

// DBTracingPlugin installs otelgorm plus slow-query and error annotations.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type dbTimingKey struct{}

// otelgormAfterPrefix names the otelgorm callbacks that end statement spans.
// Annotations must run before them while the span is still recording.
const otelgormAfterPrefix = "otel:after:"

// registerHooks installs before and after callbacks around every gorm
// processor. A nil before hook is skipped. When ahead is set the after hook
// is ordered before the callback named ahead+operation.
func registerHooks(db *gorm.DB, prefix, ahead string, before, after func(*gorm.DB)) error {
	aheadOf := func(op string) string {
		if ahead == "" {
			return ""
		}
		return ahead + op
	}

	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Before(aheadOf("create")).Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Before(aheadOf("query")).Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Before(aheadOf("update")).Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Before(aheadOf("delete")).Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Before(aheadOf("row")).Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Before(aheadOf("raw")).Register},
	}

	for _, h := range hooks {
		if before != nil {
			if err := h.before(prefix+":before_"+h.op, before); err != nil {
				return err
			}
		}
		if err := h.after(prefix+":after_"+h.op, after); err != nil {
			return err
		}
	}
	return nil
}

// Register installs otelgorm and the annotation callbacks on db.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerHooks(db, "fees_trace", otelgormAfterPrefix, markQueryStart, p.annotate); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, dbTimingKey{}, time.Now())
	}
}

func queryElapsed(ctx context.Context) (time.Duration, bool) {
	start, ok := ctx.Value(dbTimingKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// annotate adds table, row count, error status and a slow-query event to the
// span otelgorm opened for the statement.
func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if elapsed, ok := queryElapsed(ctx); ok && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
