package service

import (
	"context"
	"sync"
	"testing"
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

// fakeStore mirrors the real repository's transactional behavior: settlement
// decides the winner and voids siblings under one lock.
type fakeStore struct {
	mu     sync.Mutex
	lead   *domain.Lead
	quotes map[uuid.UUID]*repository.Quote
	items  map[uuid.UUID][]repository.Item
}

func newFakeStore(lead *domain.Lead) *fakeStore {
	return &fakeStore{
		lead:   lead,
		quotes: make(map[uuid.UUID]*repository.Quote),
		items:  make(map[uuid.UUID][]repository.Item),
	}
}

func (f *fakeStore) CreateWithItems(_ context.Context, quote *repository.Quote, items []repository.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.quotes {
		if q.LeadID == quote.LeadID && q.ProfessionalID == quote.ProfessionalID {
			return apperr.Conflict("a quote for this lead already exists")
		}
	}
	cp := *quote
	f.quotes[quote.ID] = &cp
	f.items[quote.ID] = items
	if f.lead.Status == domain.StatusOpen || f.lead.Status == domain.StatusFull {
		f.lead.Status = domain.StatusQuoted
	}
	return nil
}

func (f *fakeStore) UpdateWithItems(_ context.Context, quote *repository.Quote, items []repository.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.quotes[quote.ID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	if existing.ProfessionalID != quote.ProfessionalID {
		return apperr.Forbidden("only the quote author may modify it")
	}
	if existing.Status != repository.StatusPending {
		return apperr.BadRequest("only pending quotes can be modified")
	}
	existing.Message = quote.Message
	existing.SubtotalCents = quote.SubtotalCents
	existing.TaxCents = quote.TaxCents
	existing.TotalCents = quote.TotalCents
	existing.UpdatedAt = quote.UpdatedAt
	f.items[quote.ID] = items
	return nil
}

func (f *fakeStore) Accept(_ context.Context, quoteID, homeownerID uuid.UUID, now time.Time) (*repository.SettlementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	quote, ok := f.quotes[quoteID]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	if f.lead.HomeownerID != homeownerID {
		return nil, apperr.Forbidden("only the lead owner may accept a quote")
	}
	if quote.Status != repository.StatusPending {
		return nil, apperr.Conflict("quote has already been decided")
	}

	quote.Status = repository.StatusAccepted
	quote.DecidedAt = &now
	f.lead.Status = domain.StatusAccepted

	var siblings []repository.DeclinedSibling
	for id, q := range f.quotes {
		if id != quoteID && q.LeadID == quote.LeadID && q.Status == repository.StatusPending {
			reason := repository.StandardDeclineReason
			q.Status = repository.StatusDeclined
			q.DeclineReason = &reason
			q.DecidedAt = &now
			siblings = append(siblings, repository.DeclinedSibling{QuoteID: id, ProfessionalID: q.ProfessionalID})
		}
	}

	cp := *quote
	return &repository.SettlementResult{
		Quote:            cp,
		HomeownerID:      homeownerID,
		DeclinedSiblings: siblings,
	}, nil
}

func (f *fakeStore) Decline(_ context.Context, quoteID, homeownerID uuid.UUID, reason string, now time.Time) (*repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[quoteID]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	if f.lead.HomeownerID != homeownerID {
		return nil, apperr.Forbidden("only the lead owner may decide a quote")
	}
	if quote.Status != repository.StatusPending {
		return nil, apperr.Conflict("quote has already been decided")
	}
	quote.Status = repository.StatusDeclined
	if reason != "" {
		quote.DeclineReason = &reason
	}
	quote.DecidedAt = &now
	cp := *quote
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, quoteID, professionalID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[quoteID]
	if !ok {
		return apperr.NotFound("quote not found")
	}
	if quote.ProfessionalID != professionalID {
		return apperr.Forbidden("only the quote author may modify it")
	}
	if quote.Status != repository.StatusPending {
		return apperr.BadRequest("only pending quotes can be modified")
	}
	delete(f.quotes, quoteID)
	delete(f.items, quoteID)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[id]
	if !ok {
		return nil, apperr.NotFound("quote not found")
	}
	cp := *quote
	return &cp, nil
}

func (f *fakeStore) GetItems(_ context.Context, quoteID uuid.UUID) ([]repository.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[quoteID], nil
}

func (f *fakeStore) ListByLead(_ context.Context, leadID uuid.UUID, _ repository.SortOrder) ([]repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Quote
	for _, q := range f.quotes {
		if q.LeadID == leadID {
			out = append(out, *q)
		}
	}
	return out, nil
}

type fakeClaims struct {
	mu    sync.Mutex
	pairs map[uuid.UUID]bool
}

func (f *fakeClaims) GetByLeadAndProfessional(_ context.Context, _ uuid.UUID, professionalID uuid.UUID) (*claimsrepo.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pairs[professionalID] {
		return nil, apperr.NotFound("claim not found")
	}
	return &claimsrepo.Claim{ProfessionalID: professionalID}, nil
}

type fakeLeads struct {
	lead *domain.Lead
}

func (f *fakeLeads) Get(context.Context, uuid.UUID) (*domain.Lead, error) {
	cp := *f.lead
	return &cp, nil
}

type fakePros struct {
	tier creditsrepo.Tier
}

func (f *fakePros) GetProfessional(_ context.Context, id uuid.UUID) (*creditsrepo.Professional, error) {
	return &creditsrepo.Professional{ID: id, VerificationTier: f.tier, CreditBalance: 100}, nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeEnqueuer) EnqueueProjectCreate(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return apperr.Internal("broker unavailable")
	}
	return nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}

func quotedLead() *domain.Lead {
	return &domain.Lead{
		ID:          uuid.New(),
		HomeownerID: uuid.New(),
		Status:      domain.StatusQuoted,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
}

func validPayload() transport.QuotePayload {
	return transport.QuotePayload{
		Message: "Full bathroom renovation",
		Items: []transport.ItemInput{
			{Description: "Labor", Quantity: 40, UnitPriceCents: 8500, LineTotalCents: 340000},
		},
		SubtotalCents:       340000,
		TaxCents:            71400,
		TotalCents:          411400,
		EstimatedStartDate:  time.Now().AddDate(0, 0, 14),
		EstimatedCompletion: time.Now().AddDate(0, 1, 0),
	}
}

func testService(store Store, claims *fakeClaims, lead *domain.Lead, tier creditsrepo.Tier, enq ProjectEnqueuer) *Service {
	return New(store, claims, &fakeLeads{lead: lead}, &fakePros{tier: tier}, enq, nopBus{}, logger.New("development"))
}

func TestSubmitRequiresClaim(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	_, err := svc.Submit(context.Background(), uuid.New(), lead.ID, validPayload())
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request without a claim, got %v", err)
	}
}

func TestSubmitRequiresApprovedTier(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	// Basic tier may claim but not quote.
	svc := testService(store, claims, lead, creditsrepo.TierBasic, &fakeEnqueuer{})

	_, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for basic tier, got %v", err)
	}
}

func TestSubmitDuplicate(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	if _, err := svc.Submit(context.Background(), pro, lead.ID, validPayload()); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on duplicate quote, got %v", err)
	}
}

func TestSubmitAdvancesLead(t *testing.T) {
	lead := quotedLead()
	lead.Status = domain.StatusOpen
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	svc := testService(store, claims, lead, creditsrepo.TierPremium, &fakeEnqueuer{})

	quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if quote.Status != repository.StatusPending {
		t.Errorf("expected pending quote, got %s", quote.Status)
	}
	if lead.Status != domain.StatusQuoted {
		t.Errorf("expected quoted lead, got %s", lead.Status)
	}
}

func TestAcceptSettlesSingleWinner(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{}}
	enq := &fakeEnqueuer{}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, enq)

	var quoteIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		pro := uuid.New()
		claims.mu.Lock()
		claims.pairs[pro] = true
		claims.mu.Unlock()
		quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		quoteIDs = append(quoteIDs, quote.ID)
	}

	result, err := svc.Accept(context.Background(), lead.HomeownerID, quoteIDs[0])
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if result.Quote.Status != repository.StatusAccepted {
		t.Errorf("winner must be accepted, got %s", result.Quote.Status)
	}
	if len(result.DeclinedSiblings) != 2 {
		t.Fatalf("expected 2 declined siblings, got %d", len(result.DeclinedSiblings))
	}
	if lead.Status != domain.StatusAccepted {
		t.Errorf("lead must settle to accepted, got %s", lead.Status)
	}
	if enq.calls != 1 {
		t.Errorf("expected one project enqueue, got %d", enq.calls)
	}

	for _, id := range quoteIDs[1:] {
		q, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if q.Status != repository.StatusDeclined {
			t.Errorf("sibling %s must be declined, got %s", id, q.Status)
		}
		if q.DeclineReason == nil || *q.DeclineReason != repository.StandardDeclineReason {
			t.Errorf("sibling %s must carry the standard decline reason", id)
		}
	}
}

func TestAcceptOnlyOnce(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := svc.Accept(context.Background(), lead.HomeownerID, quote.ID); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	_, err = svc.Accept(context.Background(), lead.HomeownerID, quote.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on double accept, got %v", err)
	}
}

func TestConcurrentAcceptsSingleWinner(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	var quoteIDs []uuid.UUID
	for i := 0; i < 4; i++ {
		pro := uuid.New()
		claims.mu.Lock()
		claims.pairs[pro] = true
		claims.mu.Unlock()
		quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		quoteIDs = append(quoteIDs, quote.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(quoteIDs))
	for i, id := range quoteIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Accept(context.Background(), lead.HomeownerID, id)
			errs[i] = err
		}(i, id)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one settlement winner, got %d", winners)
	}
}

func TestAcceptStandsWhenEnqueueFails(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	enq := &fakeEnqueuer{fail: true}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, enq)

	quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := svc.Accept(context.Background(), lead.HomeownerID, quote.ID)
	if err != nil {
		t.Fatalf("settlement must not surface enqueue failures: %v", err)
	}
	if result.Quote.Status != repository.StatusAccepted {
		t.Errorf("settlement must stand, got %s", result.Quote.Status)
	}
	if lead.Status != domain.StatusAccepted {
		t.Errorf("lead must stay accepted, got %s", lead.Status)
	}
}

func TestDeclineSingleQuote(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	proA, proB := uuid.New(), uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{proA: true, proB: true}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	quoteA, err := svc.Submit(context.Background(), proA, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("submit A failed: %v", err)
	}
	quoteB, err := svc.Submit(context.Background(), proB, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("submit B failed: %v", err)
	}

	declined, err := svc.Decline(context.Background(), lead.HomeownerID, quoteA.ID, "too expensive")
	if err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if declined.Status != repository.StatusDeclined {
		t.Errorf("expected declined, got %s", declined.Status)
	}

	// The sibling is untouched.
	other, err := store.GetByID(context.Background(), quoteB.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if other.Status != repository.StatusPending {
		t.Errorf("independent decline must not touch siblings, got %s", other.Status)
	}
}

func TestDeleteOnlyPendingAndAuthor(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := svc.Delete(context.Background(), uuid.New(), quote.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-author, got %v", err)
	}
	if err := svc.Delete(context.Background(), pro, quote.ID); err != nil {
		t.Fatalf("author delete failed: %v", err)
	}
	if _, err := store.GetByID(context.Background(), quote.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatal("quote must be gone after delete")
	}
}

func TestUpdatePendingOnly(t *testing.T) {
	lead := quotedLead()
	store := newFakeStore(lead)
	pro := uuid.New()
	claims := &fakeClaims{pairs: map[uuid.UUID]bool{pro: true}}
	svc := testService(store, claims, lead, creditsrepo.TierApproved, &fakeEnqueuer{})

	quote, err := svc.Submit(context.Background(), pro, lead.ID, validPayload())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	payload := validPayload()
	payload.Message = "Revised offer"
	updated, err := svc.Update(context.Background(), pro, quote.ID, payload)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Message != "Revised offer" {
		t.Errorf("expected replaced message, got %q", updated.Message)
	}

	if _, err := svc.Accept(context.Background(), lead.HomeownerID, quote.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := svc.Update(context.Background(), pro, quote.ID, payload); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request updating a decided quote, got %v", err)
	}
}
