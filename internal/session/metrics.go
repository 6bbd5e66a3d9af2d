package session

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// RegisterMetrics exposes the registry as observable gauges on meter:
// proctor.connections.active and proctor.connections.max_idle.
func (r *Registry) RegisterMetrics(meter metric.Meter) (metric.Registration, error) {
	active, err := meter.Int64ObservableGauge("proctor.connections.active",
		metric.WithDescription("Open telemetry connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, err
	}
	maxIdle, err := meter.Float64ObservableGauge("proctor.connections.max_idle",
		metric.WithDescription("Longest time since the last inbound frame across open connections"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(active, int64(r.Len()))
		o.ObserveFloat64(maxIdle, r.MaxIdle().Seconds())
		return nil
	}, active, maxIdle)
}
