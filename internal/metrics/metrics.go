// Package metrics wires the process's otel MeterProvider and the handful of
// instruments the Background Queue and stuck-processing sweep report
// through (§4.7, §4.9). No exporter ships in this tree — an operator wires
// one (otlp, prometheus, ...) by rebuilding NewProvider with a metric.Reader
// option; without one the SDK still aggregates but never exports, which is
// enough for local development and for the sweep's StuckGauge contract.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	sdk "go.opentelemetry.io/otel/sdk/metric"
)

// NewProvider constructs the process-wide MeterProvider.
func NewProvider() *sdk.MeterProvider {
	return sdk.NewMeterProvider()
}

// Instruments holds the gauges/counters the rest of the process reports
// through, all created against one named meter.
type Instruments struct {
	StuckMaterials metric.Int64Gauge
	QueueDepth     metric.Int64Gauge
}

// SetupMetrics registers the service's instruments on provider under
// serviceName and returns them for callers (gc.Sweep, internal/queue) to
// report against.
func SetupMetrics(provider *sdk.MeterProvider, serviceName string) (*Instruments, error) {
	meter := provider.Meter(serviceName)

	stuck, err := meter.Int64Gauge("studymate.materials.stuck",
		metric.WithDescription("materials stuck in processing past the configured timeout"))
	if err != nil {
		return nil, err
	}

	depth, err := meter.Int64Gauge("studymate.queue.depth",
		metric.WithDescription("pending jobs in the background processing queue"))
	if err != nil {
		return nil, err
	}

	return &Instruments{StuckMaterials: stuck, QueueDepth: depth}, nil
}

// StuckGauge adapts Instruments to gc.StuckGauge.
type StuckGauge struct {
	Instruments *Instruments
}

func (g StuckGauge) Set(n int) {
	if g.Instruments == nil {
		return
	}

	g.Instruments.StuckMaterials.Record(context.Background(), int64(n))
}
