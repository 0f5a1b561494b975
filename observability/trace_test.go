package observability_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tailored-agentic-units/tradedesk/observability"
)

func TestTraceObserver_AddsSpanEvents(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	ctx, span := tp.Tracer("test").Start(context.Background(), "run")
	obs := observability.NewTraceObserver()
	obs.OnEvent(ctx, observability.NewEvent("kernel.suspend", observability.LevelInfo, "kernel", map[string]any{
		"call_id":  "call_1",
		"messages": 4,
	}))
	obs.OnEvent(ctx, observability.NewEvent("kernel.error", observability.LevelError, "kernel", map[string]any{
		"error": errors.New("model unavailable"),
	}))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	events := spans[0].Events
	require.Len(t, events, 2)
	assert.Equal(t, "kernel.suspend", events[0].Name)
	assert.Contains(t, events[0].Attributes, attribute.String("call_id", "call_1"))
	assert.Contains(t, events[0].Attributes, attribute.Int("messages", 4))
	assert.Contains(t, events[1].Attributes, attribute.String("error", "model unavailable"))
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestTraceObserver_NoSpan(t *testing.T) {
	obs := observability.NewTraceObserver()
	assert.NotPanics(t, func() {
		obs.OnEvent(context.Background(), observability.NewEvent("test.event", observability.LevelInfo, "test", nil))
	})
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  attribute.Value
	}{
		{"string", "AAPL", attribute.StringValue("AAPL")},
		{"bool", true, attribute.BoolValue(true)},
		{"int", 20, attribute.IntValue(20)},
		{"int64", int64(7), attribute.Int64Value(7)},
		{"float", 190.2, attribute.Float64Value(190.2)},
		{"strings", []string{"a", "b"}, attribute.StringSliceValue([]string{"a", "b"})},
		{"error", errors.New("boom"), attribute.StringValue("boom")},
		{"other", struct{ N int }{3}, attribute.StringValue("{3}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, observability.Attribute("k", tt.value).Value)
		})
	}
}

func TestInitTracing(t *testing.T) {
	var buf bytes.Buffer

	shutdown, err := observability.InitTracing("tradedesk-test", "0.0.0", &buf)
	require.NoError(t, err)

	_, span := observability.Tracer().Start(context.Background(), "kernel.SendMessage")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "kernel.SendMessage")
}
