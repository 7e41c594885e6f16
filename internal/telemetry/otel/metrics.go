package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Redemption outcomes recorded on access.redemptions.
const (
	OutcomeGranted      = "granted"
	OutcomeDenied       = "denied"
	OutcomeRaceLost     = "race_lost"
	OutcomeInvalidInput = "invalid_input"
	OutcomeError        = "error"
)

// AccessMetrics holds the counters and histogram for credential redemption.
// A nil *AccessMetrics records nothing.
type AccessMetrics struct {
	redemptions        metric.Int64Counter
	auditWriteFailures metric.Int64Counter
	duration           metric.Float64Histogram
}

// NewAccessMetrics registers the access instruments on mp.
func NewAccessMetrics(mp metric.MeterProvider) (*AccessMetrics, error) {
	meter := mp.Meter(instrumentationName)
	redemptions, err := meter.Int64Counter("access.redemptions",
		metric.WithDescription("Credential redemption attempts by outcome."))
	if err != nil {
		return nil, err
	}
	auditFailures, err := meter.Int64Counter("access.audit_write_failures",
		metric.WithDescription("Redemptions whose use was consumed but whose access event could not be written."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("access.redeem.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time spent in Redeem."))
	if err != nil {
		return nil, err
	}
	return &AccessMetrics{redemptions: redemptions, auditWriteFailures: auditFailures, duration: duration}, nil
}

// RecordRedemption counts one attempt with the given outcome and its duration in seconds.
func (m *AccessMetrics) RecordRedemption(ctx context.Context, outcome string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.redemptions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, seconds, attrs)
}

// RecordAuditWriteFailure counts a consumed use with no access event.
func (m *AccessMetrics) RecordAuditWriteFailure(ctx context.Context, resourceID string) {
	if m == nil {
		return
	}
	m.auditWriteFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("resource_id", resourceID)))
}
