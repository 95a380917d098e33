// Package observability provides an OpenTelemetry-based metrics extension
// for fairq. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for item enqueue, dequeue, completion, retry,
// failure, policy update, and burst events.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
