package domain

import "time"

// UnknownCreator is shown for events whose creator row no longer resolves.
const UnknownCreator = "Unknown Creator"

// AccessEvent records one successful credential redemption. Events are append-only.
// CredentialID may reference a credential that has since been deleted.
type AccessEvent struct {
	ID              string
	CredentialID    string
	ResourceID      string
	SourceAddress   string
	AgentDescriptor string
	OccurredAt      time.Time
}

// EventView is an AccessEvent joined with the creator it concerns, for the admin log.
type EventView struct {
	AccessEvent
	CreatorName string
	CreatorSlug string
}
