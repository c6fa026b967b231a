package otel

import (
	"context"
	"time"

	mutant "github.com/jilio/mutant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/jilio/mutant"
)

// Observability implements mutant.Observability using OpenTelemetry
type Observability struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	dispatchCounter  metric.Int64Counter
	mutationDuration metric.Float64Histogram
	mutationErrors   metric.Int64Counter
	effectDuration   metric.Float64Histogram
	effectErrors     metric.Int64Counter
}

// Option configures the Observability
type Option func(*Observability)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observability) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observability) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates a new OpenTelemetry observability implementation
func New(opts ...Option) (*Observability, error) {
	obs := &Observability{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	// Apply options
	for _, opt := range opts {
		opt(obs)
	}

	// Initialize metrics
	var err error

	obs.dispatchCounter, err = obs.meter.Int64Counter(
		"mutant.dispatch.count",
		metric.WithDescription("Number of actions dispatched"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	obs.mutationDuration, err = obs.meter.Float64Histogram(
		"mutant.mutation.duration",
		metric.WithDescription("Mutation transaction duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	obs.mutationErrors, err = obs.meter.Int64Counter(
		"mutant.mutation.errors",
		metric.WithDescription("Number of mutator faults"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	obs.effectDuration, err = obs.meter.Float64Histogram(
		"mutant.effect.duration",
		metric.WithDescription("Effect execution duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	obs.effectErrors, err = obs.meter.Int64Counter(
		"mutant.effect.errors",
		metric.WithDescription("Number of effect faults"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return obs, nil
}

// OnDispatchStart is called when a plain action enters the pipeline
func (o *Observability) OnDispatchStart(ctx context.Context, actionType string) context.Context {
	ctx, _ = o.tracer.Start(ctx, "mutant.dispatch: "+actionType,
		trace.WithAttributes(
			attribute.String("action.type", actionType),
		),
	)

	o.dispatchCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action.type", actionType),
		),
	)

	return ctx
}

// OnDispatchComplete is called after the action's mutation and effect finished
func (o *Observability) OnDispatchComplete(ctx context.Context, actionType string) {
	span := trace.SpanFromContext(ctx)
	span.End()
}

// OnMutationComplete is called after the mutation transaction
func (o *Observability) OnMutationComplete(ctx context.Context, actionType string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("action.type", actionType),
	)

	o.mutationDuration.Record(ctx, durationMs(duration), attrs)

	if err != nil {
		o.mutationErrors.Add(ctx, 1, attrs)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// OnEffectComplete is called after the installed effect ran
func (o *Observability) OnEffectComplete(ctx context.Context, actionType string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("action.type", actionType),
	)

	o.effectDuration.Record(ctx, durationMs(duration), attrs)

	if err != nil {
		o.effectErrors.Add(ctx, 1, attrs)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

var _ mutant.Observability = (*Observability)(nil)
