package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	registrations  otelmetric.Int64Counter
	callDuration   otelmetric.Float64Histogram
}

// New wires an otel meter exported through prometheus and a tracer provider.
// Extra span processors (exporters in production, a recorder in tests) are
// attached through opts.
func New(serviceName string, opts ...sdktrace.TracerProviderOption) *Observability {
	o := &Observability{}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	o.tracerProvider = tp
	o.tracer = tp.Tracer(serviceName)

	exporter, err := prometheus.New()
	if err != nil {
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	o.meterProvider = provider
	o.meter = provider.Meter(serviceName)

	o.registrations, _ = o.meter.Int64Counter(
		"signup.registrations",
		otelmetric.WithDescription("Number of completed registrations"),
	)
	o.callDuration, _ = o.meter.Float64Histogram(
		"signup.backend.duration",
		otelmetric.WithDescription("Backend call duration"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

// StartSpan opens a span named after a backend operation.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("rozgar-signup")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Tracer returns the tracer used for backend calls.
func (o *Observability) Tracer() trace.Tracer {
	if o.tracer == nil {
		return otel.Tracer("rozgar-signup")
	}
	return o.tracer
}

func (o *Observability) RecordRegistration(ctx context.Context, strategy, role string) {
	if o.registrations != nil {
		o.registrations.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("strategy", strategy),
			attribute.String("role", role),
		))
	}
}

func (o *Observability) RecordCallDuration(ctx context.Context, operation string, duration time.Duration, status string) {
	if o.callDuration != nil {
		o.callDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
