package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedFeeType struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;uniqueIndex"`
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedFeeType{}))
	return db
}

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func findSpanAttr(spans []sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, s := range spans {
		for _, a := range s.Attributes() {
			if string(a.Key) == key {
				return a.Value, true
			}
		}
	}
	return attribute.Value{}, false
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTracedDB(t)
	sr := installRecorder(t)

	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{}, nil).Register(db))
	require.NoError(t, db.Create(&tracedFeeType{Name: "Tuition Fee"}).Error)

	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_SlowQueryAnnotated(t *testing.T) {
	db := setupTracedDB(t)
	sr := installRecorder(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBName:          "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.Register(db))

	ctx, root := otel.Tracer("test").Start(context.Background(), "collect")
	require.NoError(t, db.WithContext(ctx).Create(&tracedFeeType{Name: "Tuition Fee"}).Error)
	root.End()

	spans := sr.Ended()
	require.GreaterOrEqual(t, len(spans), 2)

	slow, ok := findSpanAttr(spans, "db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())

	table, ok := findSpanAttr(spans, "db.sql.table")
	require.True(t, ok)
	assert.Equal(t, "traced_fee_types", table.AsString())
}

func TestDBTracingPlugin_ErrorMarksSpan(t *testing.T) {
	db := setupTracedDB(t)
	sr := installRecorder(t)

	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBName: "sqlite"}, nil).Register(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&tracedFeeType{Name: "Exam Fee"}).Error)
	require.Error(t, db.WithContext(ctx).Create(&tracedFeeType{Name: "Exam Fee"}).Error)

	var failed int
	for _, s := range sr.Ended() {
		if s.Status().Code == codes.Error {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestDBTracingPlugin_NotFoundIsNotAnError(t *testing.T) {
	db := setupTracedDB(t)
	sr := installRecorder(t)

	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBName: "sqlite"}, nil).Register(db))

	var ft tracedFeeType
	err := db.WithContext(context.Background()).First(&ft, "name = ?", "missing").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	for _, s := range sr.Ended() {
		assert.NotEqual(t, codes.Error, s.Status().Code, s.Name())
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	db := setupTracedDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, nil)
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := RegisterDBMetrics(db, sqlDB, mp.Meter(MeterName), time.Nanosecond, nil)
	require.NoError(t, err)
	defer m.Stop()

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&tracedFeeType{Name: "Bus Fee"}).Error)
	var got []tracedFeeType
	require.NoError(t, db.WithContext(ctx).Find(&got).Error)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = metric
		}
	}

	require.Contains(t, names, "db_query_total")
	require.Contains(t, names, "db_slow_query_total")
	require.Contains(t, names, "db_pool_connections_max")

	total := names["db_query_total"].Data.(metricdata.Sum[int64])
	ops := map[string]int64{}
	for _, p := range total.DataPoints {
		op, _ := p.Attributes.Value(AttrDBOperation)
		ops[op.AsString()] += p.Value
	}
	assert.Equal(t, int64(1), ops["insert"])
	assert.Equal(t, int64(1), ops["select"])
}

func TestOperationOf(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"SELECT * FROM demand_bills", "select"},
		{"  insert INTO fee_transactions VALUES (1)", "insert"},
		{"UPDATE demand_bills SET paid_amount = 1", "update"},
		{"DELETE FROM demand_bills", "delete"},
		{"PRAGMA foreign_keys", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, operationOf(tt.sql))
		})
	}
}

func TestRegisterDBMetrics_NilMeter(t *testing.T) {
	_, err := RegisterDBMetrics(nil, nil, nil, 0, nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}
