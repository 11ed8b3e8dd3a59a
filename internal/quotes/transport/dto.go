package transport

import (
	"time"

	"leadmarket_backend/internal/quotes/repository"

	"github.com/google/uuid"
)

// ItemInput is one line of a quote payload.
type ItemInput struct {
	Description    string  `json:"description" validate:"required,min=2,max=500"`
	Quantity       float64 `json:"quantity" validate:"required"`
	UnitPriceCents int64   `json:"unitPriceCents"`
	LineTotalCents int64   `json:"lineTotalCents"`
}

// QuotePayload carries the full body of a quote on submission and update.
// Updates are whole-payload replacements.
type QuotePayload struct {
	Message             string      `json:"message" validate:"max=5000"`
	Items               []ItemInput `json:"items" validate:"required,dive"`
	SubtotalCents       int64       `json:"subtotalCents"`
	TaxCents            int64       `json:"taxCents"`
	TotalCents          int64       `json:"totalCents"`
	EstimatedStartDate  time.Time   `json:"estimatedStartDate" validate:"required"`
	EstimatedCompletion time.Time   `json:"estimatedCompletionDate" validate:"required"`
	AttachmentKeys      []string    `json:"attachmentKeys" validate:"max=10"`
}

// DeclineRequest carries the optional homeowner-supplied reason.
type DeclineRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ListQuotesQuery captures the listing sort.
type ListQuotesQuery struct {
	Sort string `form:"sort" validate:"omitempty,oneof=newest price_asc price_desc"`
}

// ItemResponse is the wire representation of a quote line item.
type ItemResponse struct {
	ID             uuid.UUID `json:"id"`
	Description    string    `json:"description"`
	Quantity       float64   `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	LineTotalCents int64     `json:"lineTotalCents"`
}

// QuoteResponse is the wire representation of a quote.
type QuoteResponse struct {
	ID                  uuid.UUID      `json:"id"`
	LeadID              uuid.UUID      `json:"leadId"`
	ProfessionalID      uuid.UUID      `json:"professionalId"`
	Status              string         `json:"status"`
	Message             string         `json:"message,omitempty"`
	SubtotalCents       int64          `json:"subtotalCents"`
	TaxCents            int64          `json:"taxCents"`
	TotalCents          int64          `json:"totalCents"`
	EstimatedStartDate  time.Time      `json:"estimatedStartDate"`
	EstimatedCompletion time.Time      `json:"estimatedCompletionDate"`
	DurationDays        int            `json:"durationDays"`
	AttachmentKeys      []string       `json:"attachmentKeys,omitempty"`
	DeclineReason       *string        `json:"declineReason,omitempty"`
	DecidedAt           *time.Time     `json:"decidedAt,omitempty"`
	Items               []ItemResponse `json:"items,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// ToQuoteResponse maps a quote and its items to the wire form.
func ToQuoteResponse(q *repository.Quote, items []repository.Item) QuoteResponse {
	resp := QuoteResponse{
		ID:                  q.ID,
		LeadID:              q.LeadID,
		ProfessionalID:      q.ProfessionalID,
		Status:              string(q.Status),
		Message:             q.Message,
		SubtotalCents:       q.SubtotalCents,
		TaxCents:            q.TaxCents,
		TotalCents:          q.TotalCents,
		EstimatedStartDate:  q.EstimatedStartDate,
		EstimatedCompletion: q.EstimatedCompletion,
		DurationDays:        durationDays(q.EstimatedStartDate, q.EstimatedCompletion),
		AttachmentKeys:      q.AttachmentKeys,
		DeclineReason:       q.DeclineReason,
		DecidedAt:           q.DecidedAt,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, ItemResponse{
			ID:             it.ID,
			Description:    it.Description,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: it.LineTotalCents,
		})
	}
	return resp
}

// durationDays rounds the schedule span up to whole days, minimum one.
func durationDays(start, completion time.Time) int {
	span := completion.Sub(start)
	if span <= 0 {
		return 0
	}
	days := int((span + 24*time.Hour - 1) / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}
