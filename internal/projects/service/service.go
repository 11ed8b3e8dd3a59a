package service

import (
	"context"
	"time"

	"leadmarket_backend/internal/projects/repository"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, p *repository.Project) (*repository.Project, error)
	GetByQuoteID(ctx context.Context, quoteID uuid.UUID) (*repository.Project, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID, limit int) ([]repository.Project, error)
}

// Service creates and reads projects. Creation is driven by the background
// worker after quote settlement, never inline with the accepting request.
type Service struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// CreateFromSettlement materializes the project for an accepted quote. Safe
// to call repeatedly for the same quote.
func (s *Service) CreateFromSettlement(ctx context.Context, leadID, quoteID, homeownerID, professionalID uuid.UUID) (*repository.Project, error) {
	project, err := s.store.Create(ctx, &repository.Project{
		ID:             uuid.New(),
		LeadID:         leadID,
		QuoteID:        quoteID,
		HomeownerID:    homeownerID,
		ProfessionalID: professionalID,
		Status:         repository.StatusActive,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project created from settlement",
		"project_id", project.ID, "quote_id", quoteID, "lead_id", leadID)
	return project, nil
}

// ListMine returns the caller's projects.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]repository.Project, error) {
	return s.store.ListByParticipant(ctx, userID, limit)
}
