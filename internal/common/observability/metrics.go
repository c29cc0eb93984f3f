package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Observability carries the OpenTelemetry meters exported through the
// Prometheus registry, alongside the promauto collectors.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	passCounter    otelmetric.Int64Counter
	passDuration   otelmetric.Float64Histogram
	ordersSelected otelmetric.Int64Counter
}

func New(serviceName string, logger *zap.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		logger.Warn("Failed to create Prometheus exporter", zap.Error(err))
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	passCounter, _ := meter.Int64Counter(
		"reminder.passes",
		otelmetric.WithDescription("Number of selection passes completed"),
	)

	passDuration, _ := meter.Float64Histogram(
		"reminder.pass.duration",
		otelmetric.WithDescription("Selection pass duration"),
		otelmetric.WithUnit("ms"),
	)

	ordersSelected, _ := meter.Int64Counter(
		"reminder.orders.selected",
		otelmetric.WithDescription("Orders selected for a reminder"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		passCounter:    passCounter,
		passDuration:   passDuration,
		ordersSelected: ordersSelected,
	}
}

// RecordPass records one completed pass. A nil receiver is a no-op.
func (o *Observability) RecordPass(ctx context.Context, pass string, duration time.Duration, selected int, status string) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("pass", pass),
		attribute.String("status", status),
	)
	if o.passCounter != nil {
		o.passCounter.Add(ctx, 1, attrs)
	}
	if o.passDuration != nil {
		o.passDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.ordersSelected != nil && selected > 0 {
		o.ordersSelected.Add(ctx, int64(selected), otelmetric.WithAttributes(attribute.String("pass", pass)))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
