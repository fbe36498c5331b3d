package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome values recorded on fee counters.
const (
	OutcomeSuccess   = "success"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeGenerated = "generated"
	OutcomeSkipped   = "skipped"
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
)

// FeeMetrics records fee collection, billing and read-path counters.
// A nil *FeeMetrics is valid and records nothing.
type FeeMetrics struct {
	collectionTotal   *Counter
	collectionAmount  *FloatCounter
	prefillUnmatched  *Counter
	billsTotal        *Counter
	dashboardCache    *Counter
	operationDuration *Histogram
}

// NewFeeMetrics creates the fee instruments on meter.
func NewFeeMetrics(meter metric.Meter) (*FeeMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		fm  FeeMetrics
		err error
	)

	if fm.collectionTotal, err = NewCounter(meter,
		"fee_collection_total",
		"Fee collection attempts by payment mode and outcome",
		"{collections}",
	); err != nil {
		return nil, err
	}

	if fm.collectionAmount, err = NewFloatCounter(meter,
		"fee_collection_amount",
		"Total amount collected",
		"{currency}",
	); err != nil {
		return nil, err
	}

	if fm.prefillUnmatched, err = NewCounter(meter,
		"fee_prefill_unmatched_total",
		"Fee heads with no matching fee type during form pre-fill",
		"{fee_heads}",
	); err != nil {
		return nil, err
	}

	if fm.billsTotal, err = NewCounter(meter,
		"fee_demand_bills_total",
		"Demand bill generation results by outcome",
		"{bills}",
	); err != nil {
		return nil, err
	}

	if fm.dashboardCache, err = NewCounter(meter,
		"fee_dashboard_cache_total",
		"Dashboard cache lookups by outcome",
		"{lookups}",
	); err != nil {
		return nil, err
	}

	if fm.operationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "fee_operation_duration_seconds",
		Description: "Latency of fee service operations",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return &fm, nil
}

// RecordCollection counts one collection attempt and, on success, its amount.
func (fm *FeeMetrics) RecordCollection(ctx context.Context, paymentMode, strategy, outcome string, amount decimal.Decimal) {
	if fm == nil {
		return
	}
	fm.collectionTotal.Inc(ctx,
		AttrPaymentMode.String(paymentMode),
		AttrStrategy.String(strategy),
		AttrOutcome.String(outcome),
	)
	if outcome == OutcomeSuccess {
		fm.collectionAmount.Add(ctx, amount.InexactFloat64(), AttrPaymentMode.String(paymentMode))
	}
}

// RecordPrefillUnmatched counts fee heads the pre-fill could not place.
func (fm *FeeMetrics) RecordPrefillUnmatched(ctx context.Context, count int) {
	if fm == nil || count <= 0 {
		return
	}
	fm.prefillUnmatched.Add(ctx, int64(count))
}

// RecordBillGeneration counts the per-student results of one generation run.
func (fm *FeeMetrics) RecordBillGeneration(ctx context.Context, generated, skipped, failed int) {
	if fm == nil {
		return
	}
	for outcome, n := range map[string]int{
		OutcomeGenerated: generated,
		OutcomeSkipped:   skipped,
		OutcomeFailed:    failed,
	} {
		if n > 0 {
			fm.billsTotal.Add(ctx, int64(n), AttrOutcome.String(outcome))
		}
	}
}

// RecordDashboardCache counts a dashboard cache hit or miss.
func (fm *FeeMetrics) RecordDashboardCache(ctx context.Context, hit bool) {
	if fm == nil {
		return
	}
	outcome := OutcomeMiss
	if hit {
		outcome = OutcomeHit
	}
	fm.dashboardCache.Inc(ctx, AttrCache.String("dashboard"), AttrOutcome.String(outcome))
}

// ObserveOperation records how long operation took since start.
func (fm *FeeMetrics) ObserveOperation(ctx context.Context, operation string, start time.Time) {
	if fm == nil {
		return
	}
	fm.operationDuration.RecordDuration(ctx, time.Since(start), AttrOperation.String(operation))
}
