package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadmarket_backend/internal/claims/repository"
	creditsrepo "leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
)

// fakeAdmitter mirrors the transactional guarantees of the real repository:
// the slot take, uniqueness check, and debit happen under one lock, all or
// nothing.
type fakeAdmitter struct {
	mu       sync.Mutex
	lead     *domain.Lead
	balances map[uuid.UUID]int
	claims   map[uuid.UUID]bool
}

func newFakeAdmitter(lead *domain.Lead) *fakeAdmitter {
	return &fakeAdmitter{
		lead:     lead,
		balances: make(map[uuid.UUID]int),
		claims:   make(map[uuid.UUID]bool),
	}
}

func (f *fakeAdmitter) Admit(_ context.Context, params repository.AdmissionParams) (*repository.AdmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !domain.Claimable(f.lead.Status) || f.lead.ClaimCount >= f.lead.MaxClaims {
		return nil, apperr.BadRequest("lead has reached its claim ceiling")
	}
	if f.claims[params.ProfessionalID] {
		return nil, apperr.Conflict("lead already claimed by this professional")
	}
	if f.balances[params.ProfessionalID] < params.CreditsCost {
		return nil, apperr.InsufficientCredits("insufficient credit balance")
	}

	f.lead.ClaimCount++
	if f.lead.ClaimCount >= f.lead.MaxClaims && f.lead.Status == domain.StatusOpen {
		f.lead.Status = domain.StatusFull
	}
	f.claims[params.ProfessionalID] = true
	f.balances[params.ProfessionalID] -= params.CreditsCost

	return &repository.AdmissionResult{
		Claim: repository.Claim{
			ID:             uuid.New(),
			LeadID:         params.LeadID,
			ProfessionalID: params.ProfessionalID,
			CreditsCost:    params.CreditsCost,
			CreatedAt:      params.Now,
		},
		HomeownerID: f.lead.HomeownerID,
		LeadFull:    f.lead.Status == domain.StatusFull,
	}, nil
}

func (f *fakeAdmitter) AdmitDirect(_ context.Context, params repository.AdmissionParams) (*repository.AdmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lead.TargetProfessionalID == nil || *f.lead.TargetProfessionalID != params.ProfessionalID {
		return nil, apperr.Forbidden("lead is not routed to this professional")
	}
	if f.lead.DirectStatus == nil || *f.lead.DirectStatus != domain.DirectPending {
		return nil, apperr.Conflict("direct lead has already been answered or converted")
	}
	if f.lead.DirectExpiresAt == nil || f.lead.DirectExpiresAt.Before(params.Now) {
		return nil, apperr.Gone("the exclusive window for this lead has closed")
	}
	if f.balances[params.ProfessionalID] < params.CreditsCost {
		return nil, apperr.InsufficientCredits("insufficient credit balance")
	}

	accepted := domain.DirectAccepted
	f.lead.DirectStatus = &accepted
	f.lead.Status = domain.StatusFull
	f.lead.ClaimCount++
	f.balances[params.ProfessionalID] -= params.CreditsCost

	return &repository.AdmissionResult{
		Claim: repository.Claim{
			ID:             uuid.New(),
			LeadID:         params.LeadID,
			ProfessionalID: params.ProfessionalID,
			CreditsCost:    params.CreditsCost,
			CreatedAt:      params.Now,
		},
		HomeownerID: f.lead.HomeownerID,
		LeadFull:    true,
	}, nil
}

func (f *fakeAdmitter) GetByLeadAndProfessional(context.Context, uuid.UUID, uuid.UUID) (*repository.Claim, error) {
	return nil, apperr.NotFound("claim not found")
}

func (f *fakeAdmitter) ListByProfessional(context.Context, uuid.UUID, int) ([]repository.Claim, error) {
	return nil, nil
}

type fakeLeads struct {
	lead *domain.Lead
}

func (f *fakeLeads) Get(context.Context, uuid.UUID) (*domain.Lead, error) {
	cp := *f.lead
	return &cp, nil
}

type fakePros struct {
	pros map[uuid.UUID]*creditsrepo.Professional
}

func (f *fakePros) GetProfessional(_ context.Context, id uuid.UUID) (*creditsrepo.Professional, error) {
	pro, ok := f.pros[id]
	if !ok {
		return nil, apperr.NotFound("professional not found")
	}
	return pro, nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

func openLead(maxClaims int) *domain.Lead {
	return &domain.Lead{
		ID:            uuid.New(),
		HomeownerID:   uuid.New(),
		BudgetBracket: domain.Bracket1KTo5K,
		Urgency:       domain.UrgencyFlexible,
		LeadType:      domain.TypePublic,
		Status:        domain.StatusOpen,
		MaxClaims:     maxClaims,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
	}
}

func professional(tier creditsrepo.Tier, balance int) *creditsrepo.Professional {
	return &creditsrepo.Professional{
		ID:               uuid.New(),
		VerificationTier: tier,
		CreditBalance:    balance,
	}
}

func newService(admitter Admitter, lead *domain.Lead, pros *fakePros) *Service {
	return New(admitter, &fakeLeads{lead: lead}, pros, nopBus{})
}

func TestClaimHappyPath(t *testing.T) {
	lead := openLead(5)
	admitter := newFakeAdmitter(lead)
	pro := professional(creditsrepo.TierApproved, 100)
	admitter.balances[pro.ID] = pro.CreditBalance
	svc := newService(admitter, lead, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}})

	result, err := svc.Claim(context.Background(), pro.ID, lead.ID)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if result.Claim.CreditsCost != 20 {
		t.Errorf("expected frozen cost 20 for 1k-5k flexible approved, got %d", result.Claim.CreditsCost)
	}
	if result.LeadFull {
		t.Error("first claim on a five-slot lead must not fill it")
	}
	if admitter.balances[pro.ID] != 80 {
		t.Errorf("expected balance 80 after debit, got %d", admitter.balances[pro.ID])
	}
}

func TestClaimUnverifiedProfessional(t *testing.T) {
	lead := openLead(5)
	admitter := newFakeAdmitter(lead)
	pro := professional(creditsrepo.TierPending, 1000)
	svc := newService(admitter, lead, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}})

	_, err := svc.Claim(context.Background(), pro.ID, lead.ID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if lead.ClaimCount != 0 {
		t.Error("failed admission must not consume a slot")
	}
}

func TestClaimInsufficientCredits(t *testing.T) {
	lead := openLead(5)
	admitter := newFakeAdmitter(lead)
	pro := professional(creditsrepo.TierBasic, 3)
	admitter.balances[pro.ID] = pro.CreditBalance
	svc := newService(admitter, lead, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}})

	_, err := svc.Claim(context.Background(), pro.ID, lead.ID)
	if apperr.GetCode(err) != apperr.CodeInsufficientCredits {
		t.Fatalf("expected insufficient credits, got %v", err)
	}
	if lead.ClaimCount != 0 || admitter.balances[pro.ID] != 3 {
		t.Error("failed admission must leave the lead and the balance untouched")
	}
}

func TestClaimDuplicate(t *testing.T) {
	lead := openLead(5)
	admitter := newFakeAdmitter(lead)
	pro := professional(creditsrepo.TierApproved, 100)
	admitter.balances[pro.ID] = pro.CreditBalance
	svc := newService(admitter, lead, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}})

	if _, err := svc.Claim(context.Background(), pro.ID, lead.ID); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	_, err := svc.Claim(context.Background(), pro.ID, lead.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}
}

func TestClaimOnDirectPendingLeadForbidden(t *testing.T) {
	lead := openLead(1)
	pending := domain.DirectPending
	target := uuid.New()
	windowEnd := time.Now().Add(time.Hour)
	lead.LeadType = domain.TypeDirect
	lead.DirectStatus = &pending
	lead.TargetProfessionalID = &target
	lead.DirectExpiresAt = &windowEnd

	admitter := newFakeAdmitter(lead)
	pro := professional(creditsrepo.TierApproved, 100)
	admitter.balances[pro.ID] = pro.CreditBalance
	svc := newService(admitter, lead, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}})

	_, err := svc.Claim(context.Background(), pro.ID, lead.ID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for privately routed lead, got %v", err)
	}
}

// Ten professionals race for the single remaining slot; exactly one wins.
func TestConcurrentClaimsLastSlot(t *testing.T) {
	lead := openLead(5)
	lead.ClaimCount = 4

	admitter := newFakeAdmitter(lead)
	pros := &fakePros{pros: make(map[uuid.UUID]*creditsrepo.Professional)}
	ids := make([]uuid.UUID, 10)
	for i := range ids {
		pro := professional(creditsrepo.TierApproved, 100)
		pros.pros[pro.ID] = pro
		admitter.balances[pro.ID] = pro.CreditBalance
		ids[i] = pro.ID
	}
	svc := newService(admitter, lead, pros)

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, proID := range ids {
		wg.Add(1)
		go func(i int, proID uuid.UUID) {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), proID, lead.ID)
			errs[i] = err
		}(i, proID)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner for the last slot, got %d", winners)
	}
	if lead.ClaimCount != 5 {
		t.Errorf("expected claim count 5, got %d", lead.ClaimCount)
	}
	if lead.Status != domain.StatusFull {
		t.Errorf("expected full status, got %s", lead.Status)
	}
}

func TestConcurrentClaimsFreshLead(t *testing.T) {
	lead := openLead(5)
	admitter := newFakeAdmitter(lead)
	pros := &fakePros{pros: make(map[uuid.UUID]*creditsrepo.Professional)}
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		pro := professional(creditsrepo.TierApproved, 100)
		pros.pros[pro.ID] = pro
		admitter.balances[pro.ID] = pro.CreditBalance
		ids[i] = pro.ID
	}
	svc := newService(admitter, lead, pros)

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, proID := range ids {
		wg.Add(1)
		go func(i int, proID uuid.UUID) {
			defer wg.Done()
			_, err := svc.Claim(context.Background(), proID, lead.ID)
			errs[i] = err
		}(i, proID)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("claim %d failed on a fresh five-slot lead: %v", i, err)
		}
	}
	if lead.Status != domain.StatusFull {
		t.Errorf("expected full after five claims, got %s", lead.Status)
	}

	late := professional(creditsrepo.TierApproved, 100)
	pros.pros[late.ID] = late
	admitter.balances[late.ID] = late.CreditBalance
	if _, err := svc.Claim(context.Background(), late.ID, lead.ID); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for a sixth claim on a full lead, got %v", err)
	}
}

func TestAcceptDirect(t *testing.T) {
	pro := professional(creditsrepo.TierPremium, 100)

	lead := openLead(1)
	pending := domain.DirectPending
	windowEnd := time.Now().Add(time.Hour)
	lead.LeadType = domain.TypeDirect
	lead.DirectStatus = &pending
	lead.TargetProfessionalID = &pro.ID
	lead.DirectExpiresAt = &windowEnd
	lead.BudgetBracket = domain.Bracket1KTo5K
	lead.Urgency = domain.UrgencyFlexible

	admitter := newFakeAdmitter(lead)
	admitter.balances[pro.ID] = pro.CreditBalance
	bus := &recordingBus{}
	svc := New(admitter, &fakeLeads{lead: lead}, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}}, bus)

	result, err := svc.AcceptDirect(context.Background(), pro.ID, lead.ID)
	if err != nil {
		t.Fatalf("AcceptDirect failed: %v", err)
	}
	// Premium tier: 20 base, discounted to 17.
	if result.Claim.CreditsCost != 17 {
		t.Errorf("expected discounted cost 17, got %d", result.Claim.CreditsCost)
	}
	if !result.LeadFull {
		t.Error("an accepted direct lead must be full")
	}

	accepted := false
	for _, name := range bus.names() {
		if name == "leads.direct.accepted" {
			accepted = true
		}
	}
	if !accepted {
		t.Errorf("expected a direct accepted event, got %v", bus.names())
	}

	// Second accept has to fail: the pending guard is gone.
	_, err = svc.AcceptDirect(context.Background(), pro.ID, lead.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on double accept, got %v", err)
	}
}

func TestAcceptDirectWindowClosed(t *testing.T) {
	pro := professional(creditsrepo.TierApproved, 100)

	lead := openLead(1)
	pending := domain.DirectPending
	windowEnd := time.Now().Add(-time.Minute)
	lead.LeadType = domain.TypeDirect
	lead.DirectStatus = &pending
	lead.TargetProfessionalID = &pro.ID
	lead.DirectExpiresAt = &windowEnd

	admitter := newFakeAdmitter(lead)
	admitter.balances[pro.ID] = pro.CreditBalance
	svc := newService(admitter, lead, &fakePros{pros: map[uuid.UUID]*creditsrepo.Professional{pro.ID: pro}})

	_, err := svc.AcceptDirect(context.Background(), pro.ID, lead.ID)
	if !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("expected gone after window close, got %v", err)
	}
}
