// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadmarket_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a homeowner posts a new public lead.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	HomeownerID uuid.UUID `json:"homeownerId"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Urgency     string    `json:"urgency"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadClaimed is published when a professional's claim is admitted.
type LeadClaimed struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	ClaimID        uuid.UUID `json:"claimId"`
	HomeownerID    uuid.UUID `json:"homeownerId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	CreditsCost    int       `json:"creditsCost"`
	LeadFull       bool      `json:"leadFull"`
}

func (e LeadClaimed) EventName() string { return "leads.lead.claimed" }

// LeadExpired is published when a lead passes its outer expiry bound.
type LeadExpired struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	HomeownerID uuid.UUID `json:"homeownerId"`
}

func (e LeadExpired) EventName() string { return "leads.lead.expired" }

// LeadCancelled is published when the owning homeowner cancels an open lead.
type LeadCancelled struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	HomeownerID uuid.UUID `json:"homeownerId"`
}

func (e LeadCancelled) EventName() string { return "leads.lead.cancelled" }

// =============================================================================
// Direct Lead Domain Events
// =============================================================================

// DirectLeadReceived is published when a homeowner routes a lead privately
// to one targeted professional.
type DirectLeadReceived struct {
	BaseEvent
	LeadID               uuid.UUID `json:"leadId"`
	HomeownerID          uuid.UUID `json:"homeownerId"`
	TargetProfessionalID uuid.UUID `json:"targetProfessionalId"`
	Category             string    `json:"category"`
}

func (e DirectLeadReceived) EventName() string { return "leads.direct.received" }

// DirectLeadAccepted is published when the targeted professional accepts
// within the privacy window.
type DirectLeadAccepted struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	HomeownerID    uuid.UUID `json:"homeownerId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	CreditsCost    int       `json:"creditsCost"`
}

func (e DirectLeadAccepted) EventName() string { return "leads.direct.accepted" }

// DirectLeadDeclined is published when the targeted professional declines.
type DirectLeadDeclined struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	HomeownerID    uuid.UUID `json:"homeownerId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	Reason         string    `json:"reason,omitempty"`
}

func (e DirectLeadDeclined) EventName() string { return "leads.direct.declined" }

// DirectLeadConverted is published when a direct lead enters the public pool,
// either by decline or by the expiry sweep.
type DirectLeadConverted struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	HomeownerID uuid.UUID `json:"homeownerId"`
}

func (e DirectLeadConverted) EventName() string { return "leads.direct.converted" }

// =============================================================================
// Quotes Domain Events
// =============================================================================

// QuoteSubmitted is published when a professional submits a quote on a
// claimed lead.
type QuoteSubmitted struct {
	BaseEvent
	QuoteID        uuid.UUID `json:"quoteId"`
	LeadID         uuid.UUID `json:"leadId"`
	HomeownerID    uuid.UUID `json:"homeownerId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	TotalCents     int64     `json:"totalCents"`
}

func (e QuoteSubmitted) EventName() string { return "quotes.quote.submitted" }

// QuoteAccepted is published after the settlement transaction commits.
// Project creation is driven off this event via the scheduler, never inline.
type QuoteAccepted struct {
	BaseEvent
	QuoteID        uuid.UUID `json:"quoteId"`
	LeadID         uuid.UUID `json:"leadId"`
	HomeownerID    uuid.UUID `json:"homeownerId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	TotalCents     int64     `json:"totalCents"`
}

func (e QuoteAccepted) EventName() string { return "quotes.quote.accepted" }

// QuoteDeclined is published when a homeowner declines a single quote, and
// once per voided sibling during settlement.
type QuoteDeclined struct {
	BaseEvent
	QuoteID        uuid.UUID `json:"quoteId"`
	LeadID         uuid.UUID `json:"leadId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	Reason         string    `json:"reason,omitempty"`
}

func (e QuoteDeclined) EventName() string { return "quotes.quote.declined" }
