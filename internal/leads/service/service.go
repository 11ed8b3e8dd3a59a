package service

import (
	"context"
	"fmt"
	"time"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/transport"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config exposes the marketplace settings the lead service needs.
type Config interface {
	GetClaimCeiling() int
	GetDirectLeadWindow() time.Duration
	GetLeadTTL() time.Duration
}

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error)
	Cancel(ctx context.Context, id, homeownerID uuid.UUID) error
	DeclineDirect(ctx context.Context, id, professionalID uuid.UUID, ceiling int) (*domain.Lead, error)
	ConvertDirectToPublic(ctx context.Context, id uuid.UUID, ceiling int) (*domain.Lead, error)
	ListDirectPendingPastWindow(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	ExpireIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireDue(ctx context.Context, now time.Time) ([]repository.ConvertedLead, error)
}

// SweepResult aggregates the outcome of one expiry sweep pass.
type SweepResult struct {
	Converted int
	Expired   int
	Failed    int
}

// Service implements lead intake, the direct-lead gatekeeper, and expiry.
type Service struct {
	store Store
	bus   events.Bus
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
}

func New(store Store, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// Create registers a public lead into the marketplace pool.
func (s *Service) Create(ctx context.Context, homeownerID uuid.UUID, req transport.CreateLeadRequest) (*domain.Lead, error) {
	lead, err := s.buildLead(homeownerID, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("leads.Create: %w", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		HomeownerID: lead.HomeownerID,
		Category:    lead.Category,
		Location:    lead.Location,
		Urgency:     string(lead.Urgency),
	})
	return lead, nil
}

// CreateDirect registers a lead privately routed to one professional. The
// lead stays out of the public pool until the privacy window closes or the
// professional declines.
func (s *Service) CreateDirect(ctx context.Context, homeownerID uuid.UUID, req transport.CreateDirectLeadRequest) (*domain.Lead, error) {
	lead, err := s.buildLead(homeownerID, req.CreateLeadRequest)
	if err != nil {
		return nil, err
	}

	now := s.now()
	windowEnd := now.Add(s.cfg.GetDirectLeadWindow())
	pending := domain.DirectPending

	lead.LeadType = domain.TypeDirect
	lead.TargetProfessionalID = &req.ProfessionalID
	lead.DirectStatus = &pending
	lead.DirectExpiresAt = &windowEnd
	lead.MaxClaims = 1

	if err := s.store.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("leads.CreateDirect: %w", err)
	}

	s.bus.Publish(ctx, events.DirectLeadReceived{
		BaseEvent:            events.NewBaseEvent(),
		LeadID:               lead.ID,
		HomeownerID:          lead.HomeownerID,
		TargetProfessionalID: req.ProfessionalID,
		Category:             lead.Category,
	})
	return lead, nil
}

func (s *Service) buildLead(homeownerID uuid.UUID, req transport.CreateLeadRequest) (*domain.Lead, error) {
	if !domain.ValidUrgency(domain.Urgency(req.Urgency)) {
		return nil, apperr.Validation("invalid urgency level")
	}
	bracket := domain.BudgetBracket(req.BudgetBracket)
	if !domain.ValidBracket(bracket) {
		bracket = domain.DefaultBracket
	}

	contactPhone := phone.NormalizeE164(req.ContactPhone)

	now := s.now()
	return &domain.Lead{
		ID:            uuid.New(),
		HomeownerID:   homeownerID,
		Category:      req.Category,
		Location:      req.Location,
		Description:   req.Description,
		ContactPhone:  contactPhone,
		BudgetBracket: bracket,
		Urgency:       domain.Urgency(req.Urgency),
		LeadType:      domain.TypePublic,
		Status:        domain.StatusOpen,
		ClaimCount:    0,
		MaxClaims:     s.cfg.GetClaimCeiling(),
		ExpiresAt:     now.Add(s.cfg.GetLeadTTL()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Get fetches a lead, applying lazy expiry so callers never observe a lead
// that is past its outer bound but still marked active.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	expired, err := s.store.ExpireIfDue(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("leads.Get: %w", err)
	}
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expired {
		s.publishExpired(ctx, lead.ID, lead.HomeownerID)
	}
	return lead, nil
}

// List returns pool-visible leads.
func (s *Service) List(ctx context.Context, params repository.ListParams) (*repository.ListResult, error) {
	return s.store.List(ctx, params)
}

// Cancel lets the owning homeowner withdraw an open lead.
func (s *Service) Cancel(ctx context.Context, id, homeownerID uuid.UUID) error {
	if err := s.store.Cancel(ctx, id, homeownerID); err != nil {
		return err
	}
	s.bus.Publish(ctx, events.LeadCancelled{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      id,
		HomeownerID: homeownerID,
	})
	return nil
}

// DeclineDirect handles the targeted professional turning down a direct
// lead. The lead converts to the public pool immediately.
func (s *Service) DeclineDirect(ctx context.Context, id, professionalID uuid.UUID) (*domain.Lead, error) {
	now := s.now()
	if _, err := s.store.ExpireIfDue(ctx, id, now); err != nil {
		return nil, fmt.Errorf("leads.DeclineDirect: %w", err)
	}

	lead, err := s.store.DeclineDirect(ctx, id, professionalID, s.cfg.GetClaimCeiling())
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.DirectLeadDeclined{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		HomeownerID:    lead.HomeownerID,
		ProfessionalID: professionalID,
	})
	s.bus.Publish(ctx, events.DirectLeadConverted{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		HomeownerID: lead.HomeownerID,
	})
	return lead, nil
}

// ConvertDirectToPublic moves an unanswered direct lead into the public
// pool. The repository guard makes a second conversion fail, which the
// sweep treats as already-done.
func (s *Service) ConvertDirectToPublic(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := s.store.ConvertDirectToPublic(ctx, id, s.cfg.GetClaimCeiling())
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.DirectLeadConverted{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		HomeownerID: lead.HomeownerID,
	})
	return lead, nil
}

// RunExpirySweep performs one maintenance pass: direct leads past their
// privacy window convert to the public pool, and leads past their outer
// bound expire. A failure on one item never stops the rest of the pass.
func (s *Service) RunExpirySweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var result SweepResult

	ids, err := s.store.ListDirectPendingPastWindow(ctx, now, 500)
	if err != nil {
		return result, fmt.Errorf("leads.RunExpirySweep: %w", err)
	}

	var converted, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	results := make([]error, len(ids))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			_, err := s.ConvertDirectToPublic(gctx, id)
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()

	for i, convErr := range results {
		switch {
		case convErr == nil:
			converted++
		case apperr.Is(convErr, apperr.KindConflict):
			// Answered or converted between listing and update. Not a failure.
		default:
			failed++
			s.log.Error("direct lead conversion failed", "lead_id", ids[i], "error", convErr)
		}
	}

	expired, err := s.store.ExpireDue(ctx, now)
	if err != nil {
		result.Converted = int(converted)
		result.Failed = int(failed) + 1
		s.log.Error("bulk lead expiry failed", "error", err)
		return result, nil
	}
	for _, e := range expired {
		s.publishExpired(ctx, e.ID, e.HomeownerID)
	}

	result.Converted = int(converted)
	result.Expired = len(expired)
	result.Failed = int(failed)
	return result, nil
}

func (s *Service) publishExpired(ctx context.Context, leadID, homeownerID uuid.UUID) {
	s.bus.Publish(ctx, events.LeadExpired{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      leadID,
		HomeownerID: homeownerID,
	})
}
