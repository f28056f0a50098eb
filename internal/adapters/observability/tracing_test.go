package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogExporter_WritesFinishedSpans(t *testing.T) {
	var buf bytes.Buffer
	tp := newTracerProvider(sdktrace.WithSyncer(logExporter{l: zerolog.New(&buf)}))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer(tracerName).Start(context.Background(), "ReviewService.Approve")
	span.SetAttributes(attribute.Int64("review.id", 5))
	span.SetStatus(codes.Error, "self approval")
	span.End()

	out := buf.String()
	require.Contains(t, out, `"span":"ReviewService.Approve"`)
	require.Contains(t, out, `"review.id":"5"`)
	require.Contains(t, out, `"status":"Error"`)
}

func TestInitTracing_InstallsProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(TracesLog, zerolog.New(&buf))
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "ReviewService.Filter")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	require.True(t, strings.Contains(buf.String(), "ReviewService.Filter"), buf.String())

	_, err = InitTracing("jaeger", zerolog.Nop())
	require.Error(t, err)

	noop, err := InitTracing(TracesNone, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, noop(context.Background()))
}
