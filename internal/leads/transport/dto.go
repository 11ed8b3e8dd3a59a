package transport

import (
	"time"

	"leadmarket_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// CreateLeadRequest is the payload for posting a public lead.
type CreateLeadRequest struct {
	Category      string `json:"category" validate:"required,min=2,max=100"`
	Location      string `json:"location" validate:"required,min=2,max=100"`
	Description   string `json:"description" validate:"required,min=10,max=5000"`
	ContactPhone  string `json:"contactPhone" validate:"required"`
	BudgetBracket string `json:"budgetBracket" validate:"required"`
	Urgency       string `json:"urgency" validate:"required,oneof=emergency urgent flexible planning"`
}

// CreateDirectLeadRequest routes a lead privately to one professional.
type CreateDirectLeadRequest struct {
	CreateLeadRequest
	ProfessionalID uuid.UUID `json:"professionalId" validate:"required"`
}

// ListLeadsQuery captures the pool listing filters.
type ListLeadsQuery struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	Location string `form:"location"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// LeadResponse is the wire representation of a lead.
type LeadResponse struct {
	ID                   uuid.UUID  `json:"id"`
	HomeownerID          uuid.UUID  `json:"homeownerId"`
	Category             string     `json:"category"`
	Location             string     `json:"location"`
	Description          string     `json:"description"`
	ContactPhone         string     `json:"contactPhone,omitempty"`
	BudgetBracket        string     `json:"budgetBracket"`
	Urgency              string     `json:"urgency"`
	LeadType             string     `json:"leadType"`
	TargetProfessionalID *uuid.UUID `json:"targetProfessionalId,omitempty"`
	DirectStatus         *string    `json:"directStatus,omitempty"`
	DirectExpiresAt      *time.Time `json:"directExpiresAt,omitempty"`
	ConvertedToPublicAt  *time.Time `json:"convertedToPublicAt,omitempty"`
	Status               string     `json:"status"`
	ClaimCount           int        `json:"claimCount"`
	MaxClaims            int        `json:"maxClaims"`
	ExpiresAt            time.Time  `json:"expiresAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// ListLeadsResponse wraps a paginated lead listing.
type ListLeadsResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// ToLeadResponse maps a domain lead to its wire form. Contact details are
// redacted unless the caller has claimed the lead or owns it.
func ToLeadResponse(l *domain.Lead, includeContact bool) LeadResponse {
	resp := LeadResponse{
		ID:                   l.ID,
		HomeownerID:          l.HomeownerID,
		Category:             l.Category,
		Location:             l.Location,
		Description:          l.Description,
		BudgetBracket:        string(l.BudgetBracket),
		Urgency:              string(l.Urgency),
		LeadType:             string(l.LeadType),
		TargetProfessionalID: l.TargetProfessionalID,
		DirectExpiresAt:      l.DirectExpiresAt,
		ConvertedToPublicAt:  l.ConvertedToPublicAt,
		Status:               string(l.Status),
		ClaimCount:           l.ClaimCount,
		MaxClaims:            l.MaxClaims,
		ExpiresAt:            l.ExpiresAt,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
	if l.DirectStatus != nil {
		s := string(*l.DirectStatus)
		resp.DirectStatus = &s
	}
	if includeContact {
		resp.ContactPhone = l.ContactPhone
	}
	return resp
}
