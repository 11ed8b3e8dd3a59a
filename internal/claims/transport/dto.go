package transport

import (
	"time"

	"leadmarket_backend/internal/claims/repository"

	"github.com/google/uuid"
)

// ClaimResponse is the wire representation of a claim.
type ClaimResponse struct {
	ID               uuid.UUID  `json:"id"`
	LeadID           uuid.UUID  `json:"leadId"`
	ProfessionalID   uuid.UUID  `json:"professionalId"`
	CreditsCost      int        `json:"creditsCost"`
	QuoteSubmitted   bool       `json:"quoteSubmitted"`
	QuoteSubmittedAt *time.Time `json:"quoteSubmittedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// AdmissionResponse reports a successful claim or direct accept.
type AdmissionResponse struct {
	Claim    ClaimResponse `json:"claim"`
	LeadFull bool          `json:"leadFull"`
}

// ListClaimsQuery captures listing parameters.
type ListClaimsQuery struct {
	Limit int `form:"limit"`
}

// ToClaimResponse maps a claim to its wire form.
func ToClaimResponse(c *repository.Claim) ClaimResponse {
	return ClaimResponse{
		ID:               c.ID,
		LeadID:           c.LeadID,
		ProfessionalID:   c.ProfessionalID,
		CreditsCost:      c.CreditsCost,
		QuoteSubmitted:   c.QuoteSubmitted,
		QuoteSubmittedAt: c.QuoteSubmittedAt,
		CreatedAt:        c.CreatedAt,
	}
}

// ToAdmissionResponse maps an admission result to its wire form.
func ToAdmissionResponse(r *repository.AdmissionResult) AdmissionResponse {
	return AdmissionResponse{
		Claim:    ToClaimResponse(&r.Claim),
		LeadFull: r.LeadFull,
	}
}
