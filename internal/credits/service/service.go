package service

import (
	"context"

	"leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/credits/transport"

	"github.com/google/uuid"
)

// Service provides read access to the credit ledger for the HTTP layer.
// Debits happen only inside admission transactions, never through here.
type Service struct {
	repo *repository.Repository
}

// New creates a new credits service
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Balance returns the authenticated professional's balance.
func (s *Service) Balance(ctx context.Context, professionalID uuid.UUID) (*transport.BalanceResponse, error) {
	pro, err := s.repo.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return &transport.BalanceResponse{
		ProfessionalID:   pro.ID,
		Balance:          pro.CreditBalance,
		VerificationTier: string(pro.VerificationTier),
	}, nil
}

// Transactions returns the professional's ledger history.
func (s *Service) Transactions(ctx context.Context, professionalID uuid.UUID, limit int) ([]transport.TransactionResponse, error) {
	items, err := s.repo.ListTransactions(ctx, professionalID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]transport.TransactionResponse, len(items))
	for i, t := range items {
		out[i] = transport.TransactionResponse{
			ID:        t.ID,
			Amount:    t.Amount,
			Reason:    t.Reason,
			LeadID:    t.LeadID,
			CreatedAt: t.CreatedAt,
		}
	}
	return out, nil
}
