package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewRunProvider initialises an SDK meter provider backed by a manual reader
// and installs it as the global OTel meter provider. The reader is drained by
// [LogSummary] when the run finishes.
//
// Returns the reader and a shutdown function to call in a defer from main().
func NewRunProvider(serviceVersion string) (*sdkmetric.ManualReader, func(context.Context) error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("soundforge"),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		res = resource.Default()
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	return reader, mp.Shutdown
}

// LogSummary collects the run's counters from the manual reader and logs one
// line per non-zero instrument sum.
func LogSummary(ctx context.Context, reader *sdkmetric.ManualReader, log *slog.Logger) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		log.Warn("metrics: collect failed", "err", err)
		return
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			if total == 0 {
				continue
			}
			log.Info("run metric", "name", m.Name, "total", total)
		}
	}
}
