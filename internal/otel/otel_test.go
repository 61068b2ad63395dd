package otel

import (
	"context"
	"testing"
	"time"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"Authorization=Basic abc", map[string]string{"Authorization": "Basic abc"}},
		{" a=1 , b = 2 ,bad,=x", map[string]string{"a": "1", "b": "2"}},
		{"k=v=w", map[string]string{"k": "v=w"}},
	}
	for _, tt := range tests {
		got := parseHeaders(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("parseHeaders(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("parseHeaders(%q)[%q] = %q, want %q", tt.raw, k, got[k], v)
			}
		}
	}
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	tel, err := Init(ctx, OTELConfig{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if tel.Enabled() {
		t.Error("telemetry without endpoint should not be enabled")
	}
	if tel.Tracer == nil || tel.Metrics == nil {
		t.Fatal("tracer and metrics should be non-nil")
	}
	tel.Metrics.RecordDelivery(ctx, "terminal", "ok")
	tel.Metrics.RecordMuxCommand(ctx, "list-sessions", "ok", time.Millisecond)
	tel.Shutdown(ctx)
}

func TestInitRejectsBadEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), OTELConfig{Endpoint: "://bad"}); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordDelivery(ctx, "agent", "ok")
	m.RecordEnqueue(ctx)
	m.RecordRetry(ctx, 2)
	m.RecordDequeue(ctx)
	m.RecordMappingUpsert(ctx)
	m.RecordMuxCommand(ctx, "send-keys", "error", time.Second)

	var tel *Telemetry
	if tel.Enabled() {
		t.Error("nil telemetry should not be enabled")
	}
	tel.Shutdown(ctx)
}
