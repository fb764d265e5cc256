package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "lifecycle", "record_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, "acme"),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, decimal.RequireFromString("120.50")),
	)
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "lifecycle.record_payment", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, map[string]string{"tenant_id": "acme", "amount": "120.5"}, attrMap(spans[0].Attributes()))
}

func TestStartSpan_Kind(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "feed.deliver", telemetry.WithSpanKind(trace.SpanKindConsumer))
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, trace.SpanKindConsumer, sr.Ended()[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, "INV-0001",
		42, "dropped",
		"count", 3,
		"ok", true,
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, "created")
	span.End()

	got := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, map[string]string{
		"document_id": "INV-0001",
		"count":       "3",
		"ok":          "true",
		"outcome":     "created",
	}, got)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("store unavailable"))
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "store unavailable", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test")
	telemetry.AddEvent(span, "claim_acquired", telemetry.SpanAttrClaimKey, "convert:PRP-0001")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "claim_acquired", events[0].Name)
	assert.Equal(t, map[string]string{"claim_key": "convert:PRP-0001"}, attrMap(events[0].Attributes))
}

func TestNilSpanIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "x")
	})
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.TraceID(context.Background()))
}
