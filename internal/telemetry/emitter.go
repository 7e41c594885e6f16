// Package telemetry mirrors committed access events to best-effort sinks (Kafka, OTel logs).
// The audit table stays the record of truth; sinks may drop events.
package telemetry

import (
	"context"
	"errors"
	"time"
)

// EventTypeAccessGranted is the event type of a successful credential redemption.
const EventTypeAccessGranted = "access.granted"

// Event is the wire form of an access event on the stream. JSON field names are stable:
// the worker and downstream consumers parse them.
type Event struct {
	ID              string    `json:"id"`
	EventType       string    `json:"eventType"`
	Source          string    `json:"source"`
	CredentialID    string    `json:"credentialId"`
	ResourceID      string    `json:"resourceId"`
	SourceAddress   string    `json:"sourceAddress"`
	AgentDescriptor string    `json:"agentDescriptor"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// EventEmitter emits access events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// MultiEmitter fans an event out to every non-nil emitter and joins their errors.
type MultiEmitter []EventEmitter

// Emit sends event to each emitter in order. A failing emitter does not stop the others.
func (m MultiEmitter) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
