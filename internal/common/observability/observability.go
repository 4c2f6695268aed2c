package observability

import (
	"context"
	"fmt"
	"time"

	"nearby-market/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	serviceName    string
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	searchDistance otelmetric.Float64Histogram
}

// Options configures New. A nil Registerer means the default Prometheus registry.
// An empty JaegerEndpoint disables span export.
type Options struct {
	ServiceName    string
	JaegerEndpoint string
	Registerer     promclient.Registerer
}

// New sets up the meter provider (exported through Prometheus) and, when an endpoint
// is configured, a Jaeger-backed tracer provider. Failures degrade to no-op
// instruments and are logged.
func New(opts Options, log logger.Logger) *Observability {
	o := &Observability{serviceName: opts.ServiceName}
	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	var promOpts []prometheus.Option
	if opts.Registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	exporter, err := prometheus.New(promOpts...)
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(opts.ServiceName)
		o.registerInstruments(log)
	}

	if opts.JaegerEndpoint != "" {
		tp, err := newTracerProvider(opts.JaegerEndpoint, res)
		if err != nil {
			log.Warn("failed to create jaeger exporter", map[string]interface{}{"error": err})
		} else {
			o.tracerProvider = tp
			otel.SetTracerProvider(tp)
		}
	}
	o.tracer = otel.Tracer(opts.ServiceName)

	return o
}

func newTracerProvider(endpoint string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		return nil, fmt.Errorf("jaeger exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

func (o *Observability) registerInstruments(log logger.Logger) {
	var err error
	if o.jobCounter, err = o.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	); err != nil {
		log.Warn("jobs.processed instrument unavailable", map[string]interface{}{"error": err})
	}

	if o.jobDuration, err = o.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		log.Warn("jobs.duration instrument unavailable", map[string]interface{}{"error": err})
	}

	if o.searchDistance, err = o.meter.Float64Histogram(
		"search.result_distance",
		otelmetric.WithDescription("Distance of returned results from the searcher"),
		otelmetric.WithUnit("km"),
	); err != nil {
		log.Warn("search.result_distance instrument unavailable", map[string]interface{}{"error": err})
	}
}

// StartSpan starts a span named name under ctx.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(o.serviceName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// RecordResultDistance records the distance of one returned search result.
func (o *Observability) RecordResultDistance(ctx context.Context, kind string, km float64) {
	if o.searchDistance != nil {
		o.searchDistance.Record(ctx, km, otelmetric.WithAttributes(attribute.String("kind", kind)))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
