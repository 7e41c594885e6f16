package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				key := ""
				if v, ok := dp.Attributes.Value(attribute.Key("outcome")); ok {
					key = v.AsString()
				}
				out[key] += dp.Value
			}
		}
	}
	return out
}

func TestAccessMetrics_RecordRedemption(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAccessMetrics(mp)
	if err != nil {
		t.Fatalf("NewAccessMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordRedemption(ctx, OutcomeGranted, 0.01)
	m.RecordRedemption(ctx, OutcomeGranted, 0.02)
	m.RecordRedemption(ctx, OutcomeDenied, 0.03)

	got := collectSum(t, reader, "access.redemptions")
	if got[OutcomeGranted] != 2 || got[OutcomeDenied] != 1 {
		t.Errorf("redemptions = %v", got)
	}
}

func TestAccessMetrics_RecordAuditWriteFailure(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAccessMetrics(mp)
	if err != nil {
		t.Fatalf("NewAccessMetrics: %v", err)
	}
	m.RecordAuditWriteFailure(context.Background(), "res-1")

	got := collectSum(t, reader, "access.audit_write_failures")
	if got[""] != 1 {
		t.Errorf("audit_write_failures = %v, want 1", got)
	}
}

func TestAccessMetrics_NilIsNoop(t *testing.T) {
	var m *AccessMetrics
	m.RecordRedemption(context.Background(), OutcomeGranted, 1)
	m.RecordAuditWriteFailure(context.Background(), "res-1")
}
