package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers payment and destructive actions that must be
	// reconstructable later (disputed payments, deleted listings).
	CategoryCompliance EventCategory = "compliance"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	ListingID uuid.UUID     `json:"listing_id"`
	Action    string        `json:"action"`
	// Outcome is "success" or "failure".
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	// ActorID tracks who performed the action (the owner for intake, "admin"
	// for confirmation, override and deletion).
	ActorID   string            `json:"actor_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

type AuditEvent string

const (
	EventListingCreated          AuditEvent = "listing_created"
	EventPaymentEvidenceSubmitted AuditEvent = "payment_evidence_submitted"
	EventPaymentConfirmed        AuditEvent = "payment_confirmed"
	EventListingExpiryOverridden AuditEvent = "listing_expiry_overridden"
	EventListingDeleted          AuditEvent = "listing_deleted"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPaymentEvidenceSubmitted: CategoryCompliance,
	EventPaymentConfirmed:        CategoryCompliance,
	EventListingExpiryOverridden: CategoryCompliance,
	EventListingDeleted:          CategoryCompliance,
	EventListingCreated:          CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
