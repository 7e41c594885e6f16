package otel

import (
	"context"
	"strings"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"creator-access-gate/internal/telemetry"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), &telemetry.Event{ID: "e1"}); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	embedded.Logger
	rec otellog.Record
}

func (r *recordCapture) Emit(_ context.Context, rec otellog.Record) { r.rec = rec }

func (r *recordCapture) Enabled(context.Context, otellog.EnabledParameters) bool { return true }

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	occurred := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := &telemetry.Event{
		ID:           "e1",
		EventType:    telemetry.EventTypeAccessGranted,
		Source:       "creator-access-gate",
		CredentialID: "cred-1",
		ResourceID:   "res-1",
		OccurredAt:   occurred,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if !capture.rec.Timestamp().Equal(occurred) {
		t.Errorf("timestamp = %v, want %v", capture.rec.Timestamp(), occurred)
	}
	if body := capture.rec.Body().AsString(); !strings.Contains(body, `"resourceId":"res-1"`) {
		t.Errorf("body = %q, want JSON event", body)
	}
	got := map[string]string{}
	capture.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		got[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"event_id":      "e1",
		"event_type":    telemetry.EventTypeAccessGranted,
		"resource_id":   "res-1",
		"credential_id": "cred-1",
		"source":        "creator-access-gate",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestEmit_ZeroTimestampDefaultsToNow(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	before := time.Now().Add(-time.Second)
	if err := em.Emit(context.Background(), &telemetry.Event{ID: "e1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if capture.rec.Timestamp().Before(before) {
		t.Errorf("timestamp %v should default to now", capture.rec.Timestamp())
	}
}
