// Package service implements credential redemption: the single path by which a presented
// secret becomes a consumed use, an access event and a session grant.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	auditdomain "creator-access-gate/internal/audit/domain"
	"creator-access-gate/internal/credential/domain"
	"creator-access-gate/internal/security"
	"creator-access-gate/internal/session"
	telemetryotel "creator-access-gate/internal/telemetry/otel"
)

// ErrUnauthorized is returned when no credential admits the presented secret. It never says why.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidInput is returned for a missing secret or malformed resource id.
var ErrInvalidInput = domain.ErrInvalidInput

// CredentialStore is the subset of the credential repository redemption needs.
type CredentialStore interface {
	ListByResource(ctx context.Context, resourceID string) ([]*domain.Credential, error)
	Consume(ctx context.Context, id string, now time.Time) (*domain.Credential, bool, error)
}

// EventRecorder appends access events.
type EventRecorder interface {
	Record(ctx context.Context, e *auditdomain.AccessEvent) error
}

// Granter mints session grants.
type Granter interface {
	Grant(resourceID string, ttl time.Duration) (*session.Grant, error)
	GrantUntil(resourceID string, expiresAt time.Time) (*session.Grant, error)
}

// Result is the outcome of a successful redemption.
type Result struct {
	Grant        *session.Grant
	CredentialID string
	UseCount     int
	EventID      string
}

// Validator redeems credentials.
type Validator struct {
	creds   CredentialStore
	hasher  *security.Hasher
	events  EventRecorder
	gate    Granter
	metrics *telemetryotel.AccessMetrics
	tracer  trace.Tracer
	logger  zerolog.Logger
	nowF    func() time.Time
}

// NewValidator returns a Validator. metrics may be nil.
func NewValidator(creds CredentialStore, hasher *security.Hasher, events EventRecorder, gate Granter, metrics *telemetryotel.AccessMetrics, logger zerolog.Logger) *Validator {
	return &Validator{
		creds:   creds,
		hasher:  hasher,
		events:  events,
		gate:    gate,
		metrics: metrics,
		tracer:  otel.Tracer("creator-access-gate/access"),
		logger:  logger,
		nowF:    time.Now,
	}
}

// Redeem checks secret against the resource's credentials in stored order and consumes the
// first redeemable match. A lost consume race is reported as ErrUnauthorized; other
// credentials are not tried and nothing is retried.
//
// Once the consume has committed it stands: a failure to record the access event afterwards
// yields an internal error and no grant, and is logged and counted for operators.
func (v *Validator) Redeem(ctx context.Context, resourceID, secret, sourceAddress, agentDescriptor string) (*Result, error) {
	ctx, span := v.tracer.Start(ctx, "access.Redeem", trace.WithAttributes(attribute.String("resource_id", resourceID)))
	defer span.End()
	start := time.Now()

	res, outcome, err := v.redeem(ctx, resourceID, secret, sourceAddress, agentDescriptor)

	v.metrics.RecordRedemption(ctx, outcome, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil && outcome == telemetryotel.OutcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redeem failed")
	}
	return res, err
}

func (v *Validator) redeem(ctx context.Context, resourceID, secret, sourceAddress, agentDescriptor string) (*Result, string, error) {
	if secret == "" {
		return nil, telemetryotel.OutcomeInvalidInput, fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}
	rid, err := uuid.Parse(resourceID)
	if err != nil {
		return nil, telemetryotel.OutcomeInvalidInput, fmt.Errorf("%w: resourceId must be a uuid", ErrInvalidInput)
	}
	resourceID = rid.String()

	now := v.nowF()
	candidates, err := v.creds.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, telemetryotel.OutcomeError, fmt.Errorf("list credentials: %w", err)
	}

	var match *domain.Credential
	for _, c := range candidates {
		if !domain.IsRedeemable(c, now) {
			continue
		}
		if v.hasher.Matches(c.SecretHash, secret) {
			match = c
			break
		}
	}
	if match == nil {
		return nil, telemetryotel.OutcomeDenied, ErrUnauthorized
	}

	consumed, ok, err := v.creds.Consume(ctx, match.ID, now)
	if err != nil {
		return nil, telemetryotel.OutcomeError, fmt.Errorf("consume credential: %w", err)
	}
	if !ok {
		v.logger.Info().Str("resource_id", resourceID).Str("credential_id", match.ID).
			Msg("access: credential no longer redeemable at consume")
		return nil, telemetryotel.OutcomeRaceLost, ErrUnauthorized
	}

	// The use is committed; caller cancellation must not cost us the audit record.
	commitCtx := context.WithoutCancel(ctx)
	event := &auditdomain.AccessEvent{
		CredentialID:    consumed.ID,
		ResourceID:      resourceID,
		SourceAddress:   sourceAddress,
		AgentDescriptor: agentDescriptor,
		OccurredAt:      now.UTC(),
	}
	if err := v.events.Record(commitCtx, event); err != nil {
		v.metrics.RecordAuditWriteFailure(commitCtx, resourceID)
		v.logger.Error().Err(err).
			Str("resource_id", resourceID).
			Str("credential_id", consumed.ID).
			Int("use_count", consumed.UseCount).
			Msg("access: use consumed but access event not recorded")
		return nil, telemetryotel.OutcomeError, fmt.Errorf("record access event: %w", err)
	}

	var grant *session.Grant
	if consumed.ExpiresAt != nil {
		grant, err = v.gate.GrantUntil(resourceID, *consumed.ExpiresAt)
	} else {
		grant, err = v.gate.Grant(resourceID, 0)
	}
	if err != nil {
		v.logger.Error().Err(err).
			Str("resource_id", resourceID).
			Str("credential_id", consumed.ID).
			Msg("access: use consumed but grant could not be issued")
		return nil, telemetryotel.OutcomeError, fmt.Errorf("issue grant: %w", err)
	}

	v.logger.Info().
		Str("resource_id", resourceID).
		Str("credential_id", consumed.ID).
		Int("use_count", consumed.UseCount).
		Time("grant_expires_at", grant.ExpiresAt).
		Msg("access: credential redeemed")

	return &Result{Grant: grant, CredentialID: consumed.ID, UseCount: consumed.UseCount, EventID: event.ID}, telemetryotel.OutcomeGranted, nil
}
