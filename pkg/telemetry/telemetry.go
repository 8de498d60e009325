// Package telemetry wires assertion-failure observability through
// OpenTelemetry: failure counters, span events, and an optional OTLP trace
// exporter. Messages pass through a sensitive-data filter before they reach
// any backend.
package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/cexll/devguard/telemetry"

// Config drives how telemetry is initialized.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// OTLPEndpoint enables an OTLP/HTTP trace exporter when set and no
	// explicit TracerProvider is supplied (host:port, no scheme).
	OTLPEndpoint   string
	Resource       *resource.Resource
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Filter         FilterConfig
}

// Manager coordinates tracing, metrics and sensitive-data filtering for the
// assertion guard.
type Manager struct {
	tracer trace.Tracer

	metrics        *metrics
	filter         *Filter
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

var globalManager atomic.Pointer[Manager]

// NewManager builds a fully wired telemetry manager. ctx is used only for
// exporter setup when OTLPEndpoint is configured.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	filter, err := NewFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	tp := cfg.TracerProvider
	if tp == nil {
		res := cfg.Resource
		if res == nil {
			res, err = buildResource(cfg)
			if err != nil {
				return nil, err
			}
		}
		opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
		if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
			exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(
				otlptracehttp.WithEndpoint(endpoint),
				otlptracehttp.WithInsecure(),
			))
			if err != nil {
				return nil, err
			}
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
		tp = sdktrace.NewTracerProvider(opts...)
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = sdkmetric.NewMeterProvider()
	}
	recorder, err := newMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	return &Manager{
		tracer:         tp.Tracer(instrumentationName),
		metrics:        recorder,
		filter:         filter,
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

// StartSpan proxies trace creation through the configured tracer.
func (m *Manager) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if m == nil || m.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return m.tracer.Start(ctx, name, opts...)
}

// RecordFailure publishes one reported assertion failure: a counter
// increment plus an event on the active span, message masked first.
func (m *Manager) RecordFailure(ctx context.Context, data FailureData) {
	if m == nil {
		return
	}
	if m.filter != nil {
		data.Message = m.filter.MaskText(data.Message)
	}
	if m.metrics != nil {
		m.metrics.RecordFailure(ctx, data)
	}
	recordFailureEvent(ctx, data)
}

// RecordSuppressed counts a failure silenced by spam protection.
func (m *Manager) RecordSuppressed(ctx context.Context, site string) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.RecordSuppressed(ctx, site)
}

// RecordInterrupt counts an interrupt request raised from a failure dialog.
func (m *Manager) RecordInterrupt(ctx context.Context, site string) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.RecordInterrupt(ctx, site)
}

// MaskText removes sensitive content from the provided value.
func (m *Manager) MaskText(value string) string {
	if m == nil || m.filter == nil {
		return value
	}
	return m.filter.MaskText(value)
}

// Shutdown gracefully stops the configured providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var result error
	if closer, ok := m.tracerProvider.(interface {
		Shutdown(context.Context) error
	}); ok && closer != nil {
		if err := closer.Shutdown(ctx); err != nil {
			result = errors.Join(result, err)
		}
	}
	if closer, ok := m.meterProvider.(interface {
		Shutdown(context.Context) error
	}); ok && closer != nil {
		if err := closer.Shutdown(ctx); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}

// SetDefault swaps the global telemetry manager used by helper functions.
func SetDefault(mgr *Manager) {
	globalManager.Store(mgr)
}

// Default returns the process-wide telemetry manager when registered.
func Default() *Manager {
	return globalManager.Load()
}

// RecordFailure publishes through the global manager when available.
func RecordFailure(ctx context.Context, data FailureData) {
	if mgr := Default(); mgr != nil {
		mgr.RecordFailure(ctx, data)
	}
}

// RecordSuppressed publishes through the global manager when available.
func RecordSuppressed(ctx context.Context, site string) {
	if mgr := Default(); mgr != nil {
		mgr.RecordSuppressed(ctx, site)
	}
}

// RecordInterrupt publishes through the global manager when available.
func RecordInterrupt(ctx context.Context, site string) {
	if mgr := Default(); mgr != nil {
		mgr.RecordInterrupt(ctx, site)
	}
}

// EndSpan finalizes span state while standardizing error recording.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}

func recordFailureEvent(ctx context.Context, data FailureData) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attrSite.String(data.Site),
		attrMessage.String(data.Message),
	}
	if data.SessionID != "" {
		attrs = append(attrs, attrSessionID.String(data.SessionID))
	}
	if data.Choice != "" {
		attrs = append(attrs, attrChoice.String(data.Choice))
	}
	span.AddEvent("assert.failed", trace.WithAttributes(attrs...))
}

func buildResource(cfg Config) (*resource.Resource, error) {
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "devguard"
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(service)}
	if version := strings.TrimSpace(cfg.ServiceVersion); version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	if env := strings.TrimSpace(cfg.Environment); env != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(env))
	}
	base := resource.Default()
	schema := base.SchemaURL()
	if schema == "" {
		schema = semconv.SchemaURL
	}
	custom := resource.NewWithAttributes(schema, attrs...)
	return resource.Merge(base, custom)
}
