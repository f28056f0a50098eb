package observability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "campus_coffee/review-workflow"

const (
	TracesNone = "none"
	TracesLog  = "log"
)

// Tracer returns the workflow tracer from the global provider. Without an
// installed SDK provider the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTracing installs the global tracer provider for exporter. "log"
// batches finished spans into l; "none" leaves tracing disabled. The
// returned func flushes and stops the provider.
func InitTracing(exporter string, l zerolog.Logger) (func(context.Context) error, error) {
	switch exporter {
	case TracesNone, "":
		return func(context.Context) error { return nil }, nil
	case TracesLog:
		tp := newTracerProvider(sdktrace.WithBatcher(logExporter{l: l}))
		otel.SetTracerProvider(tp)
		return tp.Shutdown, nil
	}
	return nil, fmt.Errorf("unknown traces exporter %q", exporter)
}

func newTracerProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(attribute.String("service.name", "campus_coffee"))
	return sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(res))...)
}

// logExporter writes one structured log line per finished span.
type logExporter struct{ l zerolog.Logger }

func (e logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		ev := e.l.Info().
			Str("trace_id", s.SpanContext().TraceID().String()).
			Str("span_id", s.SpanContext().SpanID().String()).
			Str("span", s.Name()).
			Dur("duration", s.EndTime().Sub(s.StartTime())).
			Str("status", s.Status().Code.String())
		if s.Parent().IsValid() {
			ev = ev.Str("parent_id", s.Parent().SpanID().String())
		}
		for _, kv := range s.Attributes() {
			ev = ev.Str(string(kv.Key), kv.Value.Emit())
		}
		ev.Msg("span")
	}
	return nil
}

func (logExporter) Shutdown(context.Context) error { return nil }
