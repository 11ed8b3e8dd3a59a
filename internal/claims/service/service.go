package service

import (
	"context"
	"time"

	"leadmarket_backend/internal/claims/repository"
	creditsrepo "leadmarket_backend/internal/credits/repository"
	creditssvc "leadmarket_backend/internal/credits/service"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
)

// Admitter is the transactional admission contract.
type Admitter interface {
	Admit(ctx context.Context, params repository.AdmissionParams) (*repository.AdmissionResult, error)
	AdmitDirect(ctx context.Context, params repository.AdmissionParams) (*repository.AdmissionResult, error)
	GetByLeadAndProfessional(ctx context.Context, leadID, professionalID uuid.UUID) (*repository.Claim, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit int) ([]repository.Claim, error)
}

// LeadReader fetches leads with lazy expiry applied.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
}

// ProfessionalReader fetches the claiming professional's profile.
type ProfessionalReader interface {
	GetProfessional(ctx context.Context, id uuid.UUID) (*creditsrepo.Professional, error)
}

// Service is the admission controller. Preconditions (verification tier,
// readable errors for closed leads) are checked up front; the invariants are
// enforced again inside the repository transactions, which are the only
// authority under contention.
type Service struct {
	admitter Admitter
	leads    LeadReader
	pros     ProfessionalReader
	bus      events.Bus
	now      func() time.Time
}

func New(admitter Admitter, leads LeadReader, pros ProfessionalReader, bus events.Bus) *Service {
	return &Service{
		admitter: admitter,
		leads:    leads,
		pros:     pros,
		bus:      bus,
		now:      time.Now,
	}
}

// Claim admits a professional onto a public-pool lead. On success the
// professional has paid the frozen claim price and holds one of the lead's
// slots.
func (s *Service) Claim(ctx context.Context, professionalID, leadID uuid.UUID) (*repository.AdmissionResult, error) {
	pro, err := s.pros.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !pro.VerificationTier.CanClaim() {
		return nil, apperr.Forbidden("professional is not verified to claim leads")
	}

	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.IsDirect() && lead.DirectStatus != nil && *lead.DirectStatus == domain.DirectPending {
		return nil, apperr.Forbidden("lead is privately routed")
	}
	if !domain.Claimable(lead.Status) {
		return nil, claimabilityError(lead.Status)
	}

	cost := creditssvc.ClaimCost(lead.BudgetBracket, lead.Urgency, pro.VerificationTier)

	result, err := s.admitter.Admit(ctx, repository.AdmissionParams{
		LeadID:         leadID,
		ProfessionalID: professionalID,
		CreditsCost:    cost,
		Now:            s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.LeadClaimed{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		ClaimID:        result.Claim.ID,
		HomeownerID:    result.HomeownerID,
		ProfessionalID: professionalID,
		CreditsCost:    cost,
		LeadFull:       result.LeadFull,
	})
	return result, nil
}

// AcceptDirect admits the targeted professional onto their direct lead
// inside the privacy window. It costs the same as a public claim on the
// same lead would.
func (s *Service) AcceptDirect(ctx context.Context, professionalID, leadID uuid.UUID) (*repository.AdmissionResult, error) {
	pro, err := s.pros.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !pro.VerificationTier.CanClaim() {
		return nil, apperr.Forbidden("professional is not verified to claim leads")
	}

	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}

	cost := creditssvc.ClaimCost(lead.BudgetBracket, lead.Urgency, pro.VerificationTier)

	result, err := s.admitter.AdmitDirect(ctx, repository.AdmissionParams{
		LeadID:         leadID,
		ProfessionalID: professionalID,
		CreditsCost:    cost,
		Now:            s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.DirectLeadAccepted{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		HomeownerID:    result.HomeownerID,
		ProfessionalID: professionalID,
		CreditsCost:    cost,
	})
	return result, nil
}

// ListMine returns the professional's claims.
func (s *Service) ListMine(ctx context.Context, professionalID uuid.UUID, limit int) ([]repository.Claim, error) {
	return s.admitter.ListByProfessional(ctx, professionalID, limit)
}

// Get returns the professional's claim on a lead.
func (s *Service) Get(ctx context.Context, leadID, professionalID uuid.UUID) (*repository.Claim, error) {
	return s.admitter.GetByLeadAndProfessional(ctx, leadID, professionalID)
}

func claimabilityError(status domain.Status) error {
	switch status {
	case domain.StatusFull:
		return apperr.BadRequest("lead has reached its claim ceiling")
	case domain.StatusExpired:
		return apperr.Gone("lead has expired")
	case domain.StatusCancelled:
		return apperr.Gone("lead has been cancelled")
	default:
		return apperr.BadRequest("lead is not open for claims")
	}
}
