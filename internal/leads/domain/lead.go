// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusOpen      Status = "open"
	StatusFull      Status = "full"
	StatusQuoted    Status = "quoted"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// LeadType distinguishes pool-visible leads from privately routed ones.
type LeadType string

const (
	TypePublic LeadType = "public"
	TypeDirect LeadType = "direct"
)

// DirectStatus is the state of a direct lead's private routing.
type DirectStatus string

const (
	DirectPending   DirectStatus = "pending"
	DirectAccepted  DirectStatus = "accepted"
	DirectDeclined  DirectStatus = "declined"
	DirectConverted DirectStatus = "converted"
)

// Urgency levels a homeowner can request.
type Urgency string

const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyFlexible  Urgency = "flexible"
	UrgencyPlanning  Urgency = "planning"
)

// BudgetBracket is one of six ordered monetary tiers.
type BudgetBracket string

const (
	BracketUnder500 BudgetBracket = "under-500"
	Bracket500To1K  BudgetBracket = "500-1k"
	Bracket1KTo5K   BudgetBracket = "1k-5k"
	Bracket5KTo15K  BudgetBracket = "5k-15k"
	Bracket15KTo50K BudgetBracket = "15k-50k"
	BracketOver50K  BudgetBracket = "over-50k"
)

// DefaultBracket is used when a lead arrives without a recognized bracket.
// Pricing must never error on bad input.
const DefaultBracket = Bracket1KTo5K

// Lead is the marketplace lead aggregate.
type Lead struct {
	ID                   uuid.UUID
	HomeownerID          uuid.UUID
	Category             string
	Location             string
	Description          string
	ContactPhone         string
	BudgetBracket        BudgetBracket
	Urgency              Urgency
	LeadType             LeadType
	TargetProfessionalID *uuid.UUID
	DirectStatus         *DirectStatus
	DirectExpiresAt      *time.Time
	ConvertedToPublicAt  *time.Time
	Status               Status
	ClaimCount           int
	MaxClaims            int
	ExpiresAt            time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsDirect reports whether the lead is currently in direct routing mode.
func (l *Lead) IsDirect() bool {
	return l.LeadType == TypeDirect
}

// DirectWindowOpen reports whether the targeted professional can still act
// on a direct lead at the given instant.
func (l *Lead) DirectWindowOpen(now time.Time) bool {
	if l.DirectStatus == nil || *l.DirectStatus != DirectPending {
		return false
	}
	return l.DirectExpiresAt != nil && !now.After(*l.DirectExpiresAt)
}

// ValidUrgency reports whether the value is a known urgency level.
func ValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyEmergency, UrgencyUrgent, UrgencyFlexible, UrgencyPlanning:
		return true
	}
	return false
}

// ValidBracket reports whether the value is a known budget bracket.
func ValidBracket(b BudgetBracket) bool {
	switch b {
	case BracketUnder500, Bracket500To1K, Bracket1KTo5K, Bracket5KTo15K, Bracket15KTo50K, BracketOver50K:
		return true
	}
	return false
}
