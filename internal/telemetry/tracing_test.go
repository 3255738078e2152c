package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.5, sdktrace.AlwaysSample().Description()},
		{1.0, sdktrace.AlwaysSample().Description()},
		{0, sdktrace.NeverSample().Description()},
		{-1, sdktrace.NeverSample().Description()},
		{0.25, sdktrace.TraceIDRatioBased(0.25).Description()},
	}

	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{ServiceName: "grimnir-reels"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestSpanHelpers(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("session").Start(context.Background(), "session.open")
	AddSpanAttributes(span, map[string]any{
		"session_id": "s1",
		"items":      3,
		"muted":      true,
		"settle":     300 * time.Millisecond,
		"ignored":    []int{1},
	})
	RecordError(span, nil)
	RecordError(span, errors.New("collection not found"))
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	if len(got) != 4 {
		t.Fatalf("attributes = %v", got)
	}
	if got["session_id"].AsString() != "s1" || got["items"].AsInt64() != 3 || !got["muted"].AsBool() {
		t.Fatalf("attributes = %v", got)
	}
	if got["settle_ms"].AsInt64() != 300 {
		t.Fatalf("settle_ms = %v", got["settle_ms"])
	}
	if ended[0].Status().Code != codes.Error || len(ended[0].Events()) != 1 {
		t.Fatalf("status = %+v events = %d", ended[0].Status(), len(ended[0].Events()))
	}
}
