package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/ext"
	"github.com/xraph/fairq/item"
)

// meterName is the instrumentation scope name for fairq observability.
const meterName = "github.com/xraph/fairq/observability"

// Compile-time interface checks.
var (
	_ ext.Extension      = (*MetricsExtension)(nil)
	_ ext.ItemEnqueued   = (*MetricsExtension)(nil)
	_ ext.ItemDequeued   = (*MetricsExtension)(nil)
	_ ext.ItemProcessed  = (*MetricsExtension)(nil)
	_ ext.ItemRetried    = (*MetricsExtension)(nil)
	_ ext.ItemFailed     = (*MetricsExtension)(nil)
	_ ext.PolicyUpdated  = (*MetricsExtension)(nil)
	_ ext.BurstActivated = (*MetricsExtension)(nil)
	_ ext.BurstCompleted = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via OpenTelemetry.
// Register it as a fairq extension to automatically track enqueue rates,
// completion counts, retry counts, failure rates, policy updates, and burst
// activity. Item counters carry tenant_id and tier attributes.
type MetricsExtension struct {
	itemEnqueued  metric.Int64Counter
	itemDequeued  metric.Int64Counter
	itemProcessed metric.Int64Counter
	itemRetried   metric.Int64Counter
	itemFailed    metric.Int64Counter
	policyUpdated metric.Int64Counter
	burstStarted  metric.Int64Counter
	burstRestored metric.Int64Counter
	queueWait     metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global OTel
// MeterProvider. If none is configured, noop instruments are used and the
// extension becomes a pass-through.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. This variant allows injecting a specific MeterProvider for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}
	// On error the OTel API returns noop instruments, so the extension
	// degrades gracefully.
	m.itemEnqueued, _ = meter.Int64Counter("fairq.item.enqueued",
		metric.WithDescription("Total number of items enqueued"),
		metric.WithUnit("{item}"))
	m.itemDequeued, _ = meter.Int64Counter("fairq.item.dequeued",
		metric.WithDescription("Total number of items handed to processing"),
		metric.WithUnit("{item}"))
	m.itemProcessed, _ = meter.Int64Counter("fairq.item.processed",
		metric.WithDescription("Total number of items processed successfully"),
		metric.WithUnit("{item}"))
	m.itemRetried, _ = meter.Int64Counter("fairq.item.retried",
		metric.WithDescription("Total number of re-enqueued failed attempts"),
		metric.WithUnit("{item}"))
	m.itemFailed, _ = meter.Int64Counter("fairq.item.failed",
		metric.WithDescription("Total number of items that exhausted retries"),
		metric.WithUnit("{item}"))
	m.policyUpdated, _ = meter.Int64Counter("fairq.policy.updates",
		metric.WithDescription("Total number of fairness policy updates"),
		metric.WithUnit("{update}"))
	m.burstStarted, _ = meter.Int64Counter("fairq.burst.activations",
		metric.WithDescription("Total number of burst allowance activations"),
		metric.WithUnit("{burst}"))
	m.burstRestored, _ = meter.Int64Counter("fairq.burst.completions",
		metric.WithDescription("Total number of burst allowance restorations"),
		metric.WithUnit("{burst}"))
	m.queueWait, _ = meter.Float64Histogram("fairq.item.queue_wait",
		metric.WithDescription("Time items spend queued before processing in seconds"),
		metric.WithUnit("s"))
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

func itemAttrs(it *item.Item) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("tenant_id", it.TenantID),
		attribute.String("tier", string(it.Tier)),
	)
}

// ── Item lifecycle hooks ────────────────────────────

// OnItemEnqueued implements ext.ItemEnqueued.
func (m *MetricsExtension) OnItemEnqueued(ctx context.Context, it *item.Item) error {
	m.itemEnqueued.Add(ctx, 1, itemAttrs(it))
	return nil
}

// OnItemDequeued implements ext.ItemDequeued.
func (m *MetricsExtension) OnItemDequeued(ctx context.Context, it *item.Item, wait time.Duration) error {
	m.itemDequeued.Add(ctx, 1, itemAttrs(it))
	m.queueWait.Record(ctx, wait.Seconds(), itemAttrs(it))
	return nil
}

// OnItemProcessed implements ext.ItemProcessed.
func (m *MetricsExtension) OnItemProcessed(ctx context.Context, it *item.Item, _ time.Duration) error {
	m.itemProcessed.Add(ctx, 1, itemAttrs(it))
	return nil
}

// OnItemRetried implements ext.ItemRetried.
func (m *MetricsExtension) OnItemRetried(ctx context.Context, it *item.Item, _ int, _ float64) error {
	m.itemRetried.Add(ctx, 1, itemAttrs(it))
	return nil
}

// OnItemFailed implements ext.ItemFailed.
func (m *MetricsExtension) OnItemFailed(ctx context.Context, it *item.Item, _ error) error {
	m.itemFailed.Add(ctx, 1, itemAttrs(it))
	return nil
}

// ── Scheduler lifecycle hooks ───────────────────────

// OnPolicyUpdated implements ext.PolicyUpdated.
func (m *MetricsExtension) OnPolicyUpdated(ctx context.Context, policy fairq.FairnessPolicy) error {
	m.policyUpdated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("algorithm", policy.Algorithm.String()),
	))
	return nil
}

// OnBurstActivated implements ext.BurstActivated.
func (m *MetricsExtension) OnBurstActivated(ctx context.Context, _ float64, _ time.Time) error {
	m.burstStarted.Add(ctx, 1)
	return nil
}

// OnBurstCompleted implements ext.BurstCompleted.
func (m *MetricsExtension) OnBurstCompleted(ctx context.Context, _ float64) error {
	m.burstRestored.Add(ctx, 1)
	return nil
}
