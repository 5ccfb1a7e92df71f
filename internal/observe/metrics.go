// Package observe provides the metric instruments for a soundforge run.
//
// Metrics are recorded through the OpenTelemetry Metrics API. Because
// soundforge is a short-lived batch tool there is no scrape endpoint;
// [NewRunProvider] wires a manual reader instead, and [LogSummary] drains it
// into the structured log at the end of a run. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all soundforge metrics.
const meterName = "github.com/MrWong99/soundforge"

// Metrics holds all OpenTelemetry metric instruments for the pipeline. All
// fields are safe for concurrent use — the underlying OTel types handle their
// own synchronisation.
type Metrics struct {
	// SynthRequests counts provider synthesis calls. Attributes:
	//   provider, status ("ok", "transient", "error").
	SynthRequests metric.Int64Counter

	// SynthCharacters counts quota characters consumed. Attribute: provider.
	SynthCharacters metric.Int64Counter

	// FilesCreated counts output files written. Attribute: provider.
	FilesCreated metric.Int64Counter

	// FilesRejected counts quality-gate rejections. Attribute: provider.
	FilesRejected metric.Int64Counter
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthRequests, err = m.Int64Counter("soundforge.synth.requests",
		metric.WithDescription("Provider synthesis calls."),
	); err != nil {
		return nil, err
	}
	if met.SynthCharacters, err = m.Int64Counter("soundforge.synth.characters",
		metric.WithDescription("Quota characters consumed by synthesis."),
		metric.WithUnit("{character}"),
	); err != nil {
		return nil, err
	}
	if met.FilesCreated, err = m.Int64Counter("soundforge.files.created",
		metric.WithDescription("Output audio files written."),
	); err != nil {
		return nil, err
	}
	if met.FilesRejected, err = m.Int64Counter("soundforge.files.rejected",
		metric.WithDescription("Output files rejected by the quality gate."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordSynth records one synthesis call with its outcome and the characters
// it consumed.
func (m *Metrics) RecordSynth(ctx context.Context, provider, status string, characters int) {
	if m == nil {
		return
	}
	m.SynthRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
	if characters > 0 {
		m.SynthCharacters.Add(ctx, int64(characters), metric.WithAttributes(
			attribute.String("provider", provider),
		))
	}
}

// RecordCreated records one written output file.
func (m *Metrics) RecordCreated(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.FilesCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordRejected records one quality-gate rejection.
func (m *Metrics) RecordRejected(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.FilesRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level [Metrics] instance bound to the global
// meter provider, creating it on first use.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on invalid names; fall
			// back to a nil instance, whose methods are no-ops.
			m = nil
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
