package telemetry

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const maxMessageSample = 256

var (
	attrSite      = attribute.Key("assert.site")
	attrMessage   = attribute.Key("assert.message")
	attrSessionID = attribute.Key("assert.session_id")
	attrChoice    = attribute.Key("assert.choice")
)

type metrics struct {
	failures   metric.Int64Counter
	suppressed metric.Int64Counter
	interrupts metric.Int64Counter
	dialogWait metric.Float64Histogram
}

// FailureData captures the metadata recorded for one reported failure.
type FailureData struct {
	Site      string
	Message   string
	SessionID string
	// Choice is the dialog resolution ("interrupt" or "continue"), empty if
	// the dialog has not been resolved yet.
	Choice string
	// DialogWait is how long the calling goroutine was blocked on the
	// confirmation dialog.
	DialogWait time.Duration
}

func newMetrics(m meterProvider) (*metrics, error) {
	if m == nil {
		return &metrics{}, nil
	}
	failures, err := m.Int64Counter("assert.failures.total", metric.WithDescription("Total number of reported assertion failures."))
	if err != nil {
		return nil, err
	}
	suppressed, err := m.Int64Counter("assert.suppressed.total", metric.WithDescription("Total number of failures silenced by spam protection."))
	if err != nil {
		return nil, err
	}
	interrupts, err := m.Int64Counter("assert.interrupts.total", metric.WithDescription("Total number of interrupt requests raised from failure dialogs."))
	if err != nil {
		return nil, err
	}
	dialogWait, err := m.Float64Histogram("assert.dialog.wait.ms", metric.WithDescription("Time callers spent blocked on the confirmation dialog."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &metrics{
		failures:   failures,
		suppressed: suppressed,
		interrupts: interrupts,
		dialogWait: dialogWait,
	}, nil
}

func (m *metrics) RecordFailure(ctx context.Context, data FailureData) {
	if m == nil || m.failures == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 4)
	if data.Site != "" {
		attrs = append(attrs, attrSite.String(data.Site))
	}
	if data.SessionID != "" {
		attrs = append(attrs, attrSessionID.String(data.SessionID))
	}
	if msg := sanitizeSample(data.Message); msg != "" {
		attrs = append(attrs, attrMessage.String(msg))
	}
	if data.Choice != "" {
		attrs = append(attrs, attrChoice.String(data.Choice))
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
	if data.DialogWait > 0 && m.dialogWait != nil {
		m.dialogWait.Record(ctx, float64(data.DialogWait.Milliseconds()), metric.WithAttributes(attrs...))
	}
}

func (m *metrics) RecordSuppressed(ctx context.Context, site string) {
	if m == nil || m.suppressed == nil {
		return
	}
	m.suppressed.Add(ctx, 1, metric.WithAttributes(attrSite.String(strings.TrimSpace(site))))
}

func (m *metrics) RecordInterrupt(ctx context.Context, site string) {
	if m == nil || m.interrupts == nil {
		return
	}
	m.interrupts.Add(ctx, 1, metric.WithAttributes(attrSite.String(strings.TrimSpace(site))))
}

func sanitizeSample(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if utf8.RuneCountInString(value) <= maxMessageSample {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxMessageSample])
}

// meterProvider is the subset of metric.Meter we rely on, which makes
// dependency injection straightforward in tests.
type meterProvider interface {
	Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error)
	Float64Histogram(name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error)
}
