// Package audit records access events and serves the admin access log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"creator-access-gate/internal/audit/domain"
	auditrepo "creator-access-gate/internal/audit/repository"
	"creator-access-gate/internal/telemetry"
)

// Limits for listing events.
const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Source is the source field on mirrored events.
const Source = "creator-access-gate"

// Recorder appends an access event. Unlike a best-effort logger, Record reports failure so
// the caller can withhold the grant.
type Recorder interface {
	Record(ctx context.Context, e *domain.AccessEvent) error
}

// Log implements Recorder on top of the event repository and mirrors committed events
// to an optional telemetry emitter.
type Log struct {
	repo    auditrepo.Repository
	emitter telemetry.EventEmitter
	logger  zerolog.Logger
	nowF    func() time.Time
}

// NewLog returns a Log that persists to repo. emitter may be nil.
func NewLog(repo auditrepo.Repository, emitter telemetry.EventEmitter, logger zerolog.Logger) *Log {
	return &Log{repo: repo, emitter: emitter, logger: logger, nowF: time.Now}
}

// Record writes e, assigning ID and OccurredAt when unset. Only after the write succeeds is
// the event mirrored, asynchronously, to the emitter.
func (l *Log) Record(ctx context.Context, e *domain.AccessEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = l.nowF().UTC()
	}
	if err := l.repo.Create(ctx, e); err != nil {
		return err
	}
	telemetry.EmitAsync(l.logger, l.emitter, toTelemetryEvent(e))
	return nil
}

// ListRecent returns the newest events first. limit <= 0 means DefaultListLimit; it is capped at MaxListLimit.
func (l *Log) ListRecent(ctx context.Context, limit int) ([]*domain.EventView, error) {
	return l.repo.ListRecent(ctx, NormalizeLimit(limit))
}

// ListByResource returns the newest events for resourceID first, with the same limit rules as ListRecent.
func (l *Log) ListByResource(ctx context.Context, resourceID string, limit int) ([]*domain.EventView, error) {
	return l.repo.ListByResource(ctx, resourceID, NormalizeLimit(limit))
}

// NormalizeLimit applies the default and maximum list limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func toTelemetryEvent(e *domain.AccessEvent) *telemetry.Event {
	return &telemetry.Event{
		ID:              e.ID,
		EventType:       telemetry.EventTypeAccessGranted,
		Source:          Source,
		CredentialID:    e.CredentialID,
		ResourceID:      e.ResourceID,
		SourceAddress:   e.SourceAddress,
		AgentDescriptor: e.AgentDescriptor,
		OccurredAt:      e.OccurredAt,
	}
}
