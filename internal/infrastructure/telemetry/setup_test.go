package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/schoolfees/backend/internal/infrastructure/config"
	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
)

func TestSetup_AllDisabled(t *testing.T) {
	ctx := context.Background()
	p, err := telemetry.Setup(ctx, config.TelemetryConfig{
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "school-fees-test",
	}, "test", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.False(t, p.Profiler.IsEnabled())
	assert.False(t, p.Tracer.IsSpanProfilesEnabled())

	assert.NotNil(t, p.Meter.Meter(telemetry.MeterName))
	assert.NotNil(t, p.Tracer.Tracer(telemetry.TracerName))
	assert.NoError(t, p.Tracer.ForceFlush(ctx))
	assert.NoError(t, p.Meter.ForceFlush(ctx))
	assert.NoError(t, p.Logs.ForceFlush(ctx))

	require.NoError(t, p.Shutdown(ctx))
	assert.NoError(t, p.Profiler.Stop(), "stopping twice is allowed")
}

func TestSetup_ProfilerRequiresAddress(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		ServiceName:      "school-fees-test",
		ProfilingEnabled: true,
	}, "test", nil)
	assert.ErrorContains(t, err, "server address")
}

func TestDBTracing(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true, DBTraceEnabled: true, DBLogFullSQL: true}
	got := telemetry.DBTracing(cfg, "school_fees")
	assert.True(t, got.Enabled)
	assert.True(t, got.LogFullSQL)
	assert.Equal(t, "school_fees", got.DBName)

	cfg.Enabled = false
	assert.False(t, telemetry.DBTracing(cfg, "school_fees").Enabled, "db tracing needs tracing")
}

func TestLoggerProvider_DisabledCoreIsNop(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{}, nil)
	require.NoError(t, err)

	core := lp.ZapCore(zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}
