package service

import (
	"context"
	"time"

	claimsrepo "leadmarket_backend/internal/claims/repository"
	creditsrepo "leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/quotes/repository"
	"leadmarket_backend/internal/quotes/transport"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence contract the quote service depends on.
type Store interface {
	CreateWithItems(ctx context.Context, quote *repository.Quote, items []repository.Item) error
	UpdateWithItems(ctx context.Context, quote *repository.Quote, items []repository.Item) error
	Accept(ctx context.Context, quoteID, homeownerID uuid.UUID, now time.Time) (*repository.SettlementResult, error)
	Decline(ctx context.Context, quoteID, homeownerID uuid.UUID, reason string, now time.Time) (*repository.Quote, error)
	Delete(ctx context.Context, quoteID, professionalID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.Quote, error)
	GetItems(ctx context.Context, quoteID uuid.UUID) ([]repository.Item, error)
	ListByLead(ctx context.Context, leadID uuid.UUID, sort repository.SortOrder) ([]repository.Quote, error)
}

// ClaimReader verifies the submitting professional holds a claim.
type ClaimReader interface {
	GetByLeadAndProfessional(ctx context.Context, leadID, professionalID uuid.UUID) (*claimsrepo.Claim, error)
}

// LeadReader fetches leads with lazy expiry applied.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
}

// ProfessionalReader fetches the quoting professional's profile.
type ProfessionalReader interface {
	GetProfessional(ctx context.Context, id uuid.UUID) (*creditsrepo.Professional, error)
}

// ProjectEnqueuer hands settled quotes to the background worker that creates
// the project. Enqueue failures are retried out-of-band and never surface to
// the accepting homeowner.
type ProjectEnqueuer interface {
	EnqueueProjectCreate(ctx context.Context, leadID, quoteID, homeownerID, professionalID uuid.UUID) error
}

// Service implements the quote lifecycle: submission, replacement, the
// single-winner settlement, declines, and withdrawal.
type Service struct {
	store    Store
	claims   ClaimReader
	leads    LeadReader
	pros     ProfessionalReader
	projects ProjectEnqueuer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(store Store, claims ClaimReader, leads LeadReader, pros ProfessionalReader, projects ProjectEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		claims:   claims,
		leads:    leads,
		pros:     pros,
		projects: projects,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Submit creates a quote on a claimed lead. Quoting takes the stricter
// verification gate: claiming tiers below fully-approved cannot quote.
func (s *Service) Submit(ctx context.Context, professionalID, leadID uuid.UUID, payload transport.QuotePayload) (*repository.Quote, error) {
	pro, err := s.pros.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !pro.VerificationTier.CanQuote() {
		return nil, apperr.Forbidden("professional is not approved to submit quotes")
	}

	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if domain.IsTerminal(lead.Status) {
		return nil, apperr.BadRequest("lead is no longer accepting quotes")
	}

	if _, err := s.claims.GetByLeadAndProfessional(ctx, leadID, professionalID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.BadRequest("a claim on the lead is required before quoting")
		}
		return nil, err
	}

	if err := validateSchedule(payload.EstimatedStartDate, payload.EstimatedCompletion); err != nil {
		return nil, err
	}

	now := s.now()
	quote := &repository.Quote{
		ID:                  uuid.New(),
		LeadID:              leadID,
		ProfessionalID:      professionalID,
		Status:              repository.StatusPending,
		Message:             payload.Message,
		SubtotalCents:       payload.SubtotalCents,
		TaxCents:            payload.TaxCents,
		TotalCents:          payload.TotalCents,
		EstimatedStartDate:  payload.EstimatedStartDate,
		EstimatedCompletion: payload.EstimatedCompletion,
		AttachmentKeys:      payload.AttachmentKeys,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	items, err := buildItems(quote.ID, payload)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateWithItems(ctx, quote, items); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.QuoteSubmitted{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        quote.ID,
		LeadID:         leadID,
		HomeownerID:    lead.HomeownerID,
		ProfessionalID: professionalID,
		TotalCents:     quote.TotalCents,
	})
	return quote, nil
}

// Update replaces a pending quote's full payload, author-only.
func (s *Service) Update(ctx context.Context, professionalID, quoteID uuid.UUID, payload transport.QuotePayload) (*repository.Quote, error) {
	if err := validateSchedule(payload.EstimatedStartDate, payload.EstimatedCompletion); err != nil {
		return nil, err
	}

	quote := &repository.Quote{
		ID:                  quoteID,
		ProfessionalID:      professionalID,
		Message:             payload.Message,
		SubtotalCents:       payload.SubtotalCents,
		TaxCents:            payload.TaxCents,
		TotalCents:          payload.TotalCents,
		EstimatedStartDate:  payload.EstimatedStartDate,
		EstimatedCompletion: payload.EstimatedCompletion,
		AttachmentKeys:      payload.AttachmentKeys,
		UpdatedAt:           s.now(),
	}
	items, err := buildItems(quoteID, payload)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateWithItems(ctx, quote, items); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, quoteID)
}

// Accept settles the lead on the chosen quote. The settlement itself is one
// atomic unit in the store; project creation happens asynchronously after
// commit and its failure never rolls the settlement back.
func (s *Service) Accept(ctx context.Context, homeownerID, quoteID uuid.UUID) (*repository.SettlementResult, error) {
	result, err := s.store.Accept(ctx, quoteID, homeownerID, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.projects.EnqueueProjectCreate(ctx, result.Quote.LeadID, result.Quote.ID, homeownerID, result.Quote.ProfessionalID); err != nil {
		// The settlement stands. The sweep-side worker owns the retry.
		s.log.Error("failed to enqueue project creation",
			"quote_id", result.Quote.ID, "lead_id", result.Quote.LeadID, "error", err)
	}

	s.bus.Publish(ctx, events.QuoteAccepted{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        result.Quote.ID,
		LeadID:         result.Quote.LeadID,
		HomeownerID:    homeownerID,
		ProfessionalID: result.Quote.ProfessionalID,
		TotalCents:     result.Quote.TotalCents,
	})
	for _, sibling := range result.DeclinedSiblings {
		s.bus.Publish(ctx, events.QuoteDeclined{
			BaseEvent:      events.NewBaseEvent(),
			QuoteID:        sibling.QuoteID,
			LeadID:         result.Quote.LeadID,
			ProfessionalID: sibling.ProfessionalID,
			Reason:         repository.StandardDeclineReason,
		})
	}
	return result, nil
}

// Decline turns down a single quote without touching its siblings.
func (s *Service) Decline(ctx context.Context, homeownerID, quoteID uuid.UUID, reason string) (*repository.Quote, error) {
	quote, err := s.store.Decline(ctx, quoteID, homeownerID, reason, s.now())
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.QuoteDeclined{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        quote.ID,
		LeadID:         quote.LeadID,
		ProfessionalID: quote.ProfessionalID,
		Reason:         reason,
	})
	return quote, nil
}

// Delete withdraws a pending quote, author-only. The claim survives and may
// be quoted again.
func (s *Service) Delete(ctx context.Context, professionalID, quoteID uuid.UUID) error {
	return s.store.Delete(ctx, quoteID, professionalID)
}

// Get returns a quote with its items. Only the author and the lead owner
// may see it.
func (s *Service) Get(ctx context.Context, callerID, quoteID uuid.UUID) (*repository.Quote, []repository.Item, error) {
	quote, err := s.store.GetByID(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}

	if quote.ProfessionalID != callerID {
		lead, err := s.leads.Get(ctx, quote.LeadID)
		if err != nil {
			return nil, nil, err
		}
		if lead.HomeownerID != callerID {
			return nil, nil, apperr.Forbidden("no access to this quote")
		}
	}

	items, err := s.store.GetItems(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	return quote, items, nil
}

// ListForLead returns a lead's quotes to its owning homeowner.
func (s *Service) ListForLead(ctx context.Context, homeownerID, leadID uuid.UUID, sort repository.SortOrder) ([]repository.Quote, error) {
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.HomeownerID != homeownerID {
		return nil, apperr.Forbidden("only the lead owner may list its quotes")
	}
	return s.store.ListByLead(ctx, leadID, sort)
}
