package transport

import (
	"time"

	"github.com/google/uuid"
)

// BalanceResponse is the response for the balance endpoint.
type BalanceResponse struct {
	ProfessionalID   uuid.UUID `json:"professionalId"`
	Balance          int       `json:"balance"`
	VerificationTier string    `json:"verificationTier"`
}

// TransactionResponse is one ledger entry in the history endpoint.
type TransactionResponse struct {
	ID        uuid.UUID  `json:"id"`
	Amount    int        `json:"amount"`
	Reason    string     `json:"reason"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ListTransactionsRequest defines the query parameters for the history endpoint.
type ListTransactionsRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}
