package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/transport"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeConfig struct{}

func (fakeConfig) GetClaimCeiling() int               { return 5 }
func (fakeConfig) GetDirectLeadWindow() time.Duration { return 24 * time.Hour }
func (fakeConfig) GetLeadTTL() time.Duration          { return 7 * 24 * time.Hour }

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

type fakeStore struct {
	mu           sync.Mutex
	leads        map[uuid.UUID]*domain.Lead
	failConvert  map[uuid.UUID]error
	expireDueErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:       make(map[uuid.UUID]*domain.Lead),
		failConvert: make(map[uuid.UUID]error),
	}
}

func (s *fakeStore) Create(_ context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lead
	s.leads[lead.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return nil, apperr.NotFound("lead not found")
	}
	cp := *lead
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, _ repository.ListParams) (*repository.ListResult, error) {
	return &repository.ListResult{}, nil
}

func (s *fakeStore) Cancel(_ context.Context, id, homeownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.HomeownerID != homeownerID {
		return apperr.Forbidden("only the lead owner may cancel it")
	}
	if lead.Status != domain.StatusOpen {
		return apperr.BadRequest("only open leads can be cancelled")
	}
	lead.Status = domain.StatusCancelled
	return nil
}

func (s *fakeStore) DeclineDirect(_ context.Context, id, professionalID uuid.UUID, ceiling int) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return nil, apperr.NotFound("lead not found")
	}
	if lead.TargetProfessionalID == nil || *lead.TargetProfessionalID != professionalID {
		return nil, apperr.Forbidden("lead is not routed to this professional")
	}
	if lead.DirectStatus == nil || *lead.DirectStatus != domain.DirectPending {
		return nil, apperr.Conflict("direct lead has already been answered or converted")
	}
	declined := domain.DirectDeclined
	now := time.Now()
	lead.DirectStatus = &declined
	lead.LeadType = domain.TypePublic
	lead.MaxClaims = ceiling
	lead.ConvertedToPublicAt = &now
	cp := *lead
	return &cp, nil
}

func (s *fakeStore) ConvertDirectToPublic(_ context.Context, id uuid.UUID, ceiling int) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failConvert[id]; ok {
		return nil, err
	}
	lead, ok := s.leads[id]
	if !ok {
		return nil, apperr.NotFound("lead not found")
	}
	if lead.DirectStatus == nil || *lead.DirectStatus != domain.DirectPending {
		return nil, apperr.Conflict("direct lead has already been converted or answered")
	}
	converted := domain.DirectConverted
	now := time.Now()
	lead.DirectStatus = &converted
	lead.LeadType = domain.TypePublic
	lead.MaxClaims = ceiling
	lead.ConvertedToPublicAt = &now
	cp := *lead
	return &cp, nil
}

func (s *fakeStore) ListDirectPendingPastWindow(_ context.Context, now time.Time, _ int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, lead := range s.leads {
		if lead.LeadType == domain.TypeDirect && lead.DirectStatus != nil &&
			*lead.DirectStatus == domain.DirectPending &&
			lead.DirectExpiresAt != nil && lead.DirectExpiresAt.Before(now) {
			ids = append(ids, id)
		}
	}
	for id := range s.failConvert {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeStore) ExpireIfDue(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return false, nil
	}
	if !domain.ShouldExpire(lead, now) {
		return false, nil
	}
	lead.Status = domain.StatusExpired
	return true, nil
}

func (s *fakeStore) ExpireDue(_ context.Context, now time.Time) ([]repository.ConvertedLead, error) {
	if s.expireDueErr != nil {
		return nil, s.expireDueErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.ConvertedLead
	for id, lead := range s.leads {
		if domain.ShouldExpire(lead, now) {
			lead.Status = domain.StatusExpired
			out = append(out, repository.ConvertedLead{ID: id, HomeownerID: lead.HomeownerID})
		}
	}
	return out, nil
}

func newTestService(store Store, bus events.Bus) *Service {
	return New(store, bus, fakeConfig{}, logger.New("development"))
}

func validRequest() transport.CreateLeadRequest {
	return transport.CreateLeadRequest{
		Category:      "plumbing",
		Location:      "Austin",
		Description:   "Replace a burst pipe under the kitchen sink",
		ContactPhone:  "+16502530000",
		BudgetBracket: string(domain.Bracket500To1K),
		Urgency:       string(domain.UrgencyUrgent),
	}
}

func TestCreateLeadDefaults(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)
	homeowner := uuid.New()

	lead, err := svc.Create(context.Background(), homeowner, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if lead.Status != domain.StatusOpen {
		t.Errorf("expected open status, got %s", lead.Status)
	}
	if lead.MaxClaims != 5 {
		t.Errorf("expected claim ceiling 5, got %d", lead.MaxClaims)
	}
	if lead.LeadType != domain.TypePublic {
		t.Errorf("expected public lead, got %s", lead.LeadType)
	}
	wantExpiry := lead.CreatedAt.Add(7 * 24 * time.Hour)
	if !lead.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expected expiry %v, got %v", wantExpiry, lead.ExpiresAt)
	}
}

func TestCreateLeadUnknownBracketFallsBack(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	req := validRequest()
	req.BudgetBracket = "mystery-bracket"

	lead, err := svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if lead.BudgetBracket != domain.DefaultBracket {
		t.Errorf("expected default bracket %s, got %s", domain.DefaultBracket, lead.BudgetBracket)
	}
}

func TestCreateLeadInvalidUrgency(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	req := validRequest()
	req.Urgency = "yesterday"

	_, err := svc.Create(context.Background(), uuid.New(), req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDirectLead(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)
	pro := uuid.New()

	lead, err := svc.CreateDirect(context.Background(), uuid.New(), transport.CreateDirectLeadRequest{
		CreateLeadRequest: validRequest(),
		ProfessionalID:    pro,
	})
	if err != nil {
		t.Fatalf("CreateDirect failed: %v", err)
	}
	if lead.LeadType != domain.TypeDirect {
		t.Errorf("expected direct lead, got %s", lead.LeadType)
	}
	if lead.MaxClaims != 1 {
		t.Errorf("direct lead must carry a single slot, got %d", lead.MaxClaims)
	}
	if lead.DirectStatus == nil || *lead.DirectStatus != domain.DirectPending {
		t.Error("expected pending direct status")
	}
	if lead.DirectExpiresAt == nil {
		t.Fatal("expected a privacy window end")
	}
	window := lead.DirectExpiresAt.Sub(lead.CreatedAt)
	if window != 24*time.Hour {
		t.Errorf("expected 24h privacy window, got %v", window)
	}
}

func TestGetLazyExpiry(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	lead, err := svc.Create(context.Background(), uuid.New(), validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Push the lead past its outer bound.
	store.mu.Lock()
	store.leads[lead.ID].ExpiresAt = time.Now().Add(-time.Hour)
	store.mu.Unlock()

	got, err := svc.Get(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != domain.StatusExpired {
		t.Errorf("expected lazy expiry to flip status, got %s", got.Status)
	}

	found := false
	for _, name := range bus.names() {
		if name == "leads.lead.expired" {
			found = true
		}
	}
	if !found {
		t.Error("expected a lead expired event")
	}
}

func TestDeclineDirectConvertsImmediately(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)
	pro := uuid.New()

	lead, err := svc.CreateDirect(context.Background(), uuid.New(), transport.CreateDirectLeadRequest{
		CreateLeadRequest: validRequest(),
		ProfessionalID:    pro,
	})
	if err != nil {
		t.Fatalf("CreateDirect failed: %v", err)
	}

	got, err := svc.DeclineDirect(context.Background(), lead.ID, pro)
	if err != nil {
		t.Fatalf("DeclineDirect failed: %v", err)
	}
	if got.LeadType != domain.TypePublic {
		t.Errorf("declined direct lead must enter the public pool, got %s", got.LeadType)
	}
	if got.MaxClaims != 5 {
		t.Errorf("expected claim ceiling restored to 5, got %d", got.MaxClaims)
	}

	declined, converted := false, false
	for _, name := range bus.names() {
		switch name {
		case "leads.direct.declined":
			declined = true
		case "leads.direct.converted":
			converted = true
		}
	}
	if !declined || !converted {
		t.Errorf("expected declined and converted events, got %v", bus.names())
	}

	// The wrong professional cannot decline.
	_, err = svc.DeclineDirect(context.Background(), lead.ID, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) && !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected forbidden or conflict, got %v", err)
	}
}

func TestRunExpirySweepCounts(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	// Two direct leads past their window.
	for i := 0; i < 2; i++ {
		lead, err := svc.CreateDirect(context.Background(), uuid.New(), transport.CreateDirectLeadRequest{
			CreateLeadRequest: validRequest(),
			ProfessionalID:    uuid.New(),
		})
		if err != nil {
			t.Fatalf("CreateDirect failed: %v", err)
		}
		store.mu.Lock()
		past := time.Now().Add(-time.Hour)
		store.leads[lead.ID].DirectExpiresAt = &past
		store.mu.Unlock()
	}

	// One public lead past its outer bound.
	lead, err := svc.Create(context.Background(), uuid.New(), validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.mu.Lock()
	store.leads[lead.ID].ExpiresAt = time.Now().Add(-time.Minute)
	store.mu.Unlock()

	// One conversion that fails with an infrastructure error.
	broken := uuid.New()
	store.failConvert[broken] = apperr.Internal("connection reset")

	result, err := svc.RunExpirySweep(context.Background())
	if err != nil {
		t.Fatalf("RunExpirySweep failed: %v", err)
	}
	if result.Converted != 2 {
		t.Errorf("expected 2 conversions, got %d", result.Converted)
	}
	if result.Expired != 1 {
		t.Errorf("expected 1 expiry, got %d", result.Expired)
	}
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}
}

func TestRunExpirySweepIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	lead, err := svc.CreateDirect(context.Background(), uuid.New(), transport.CreateDirectLeadRequest{
		CreateLeadRequest: validRequest(),
		ProfessionalID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("CreateDirect failed: %v", err)
	}
	store.mu.Lock()
	past := time.Now().Add(-time.Hour)
	store.leads[lead.ID].DirectExpiresAt = &past
	store.mu.Unlock()

	first, err := svc.RunExpirySweep(context.Background())
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if first.Converted != 1 {
		t.Fatalf("expected 1 conversion, got %d", first.Converted)
	}

	second, err := svc.RunExpirySweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.Converted != 0 || second.Failed != 0 {
		t.Errorf("second sweep must be a no-op, got %+v", second)
	}
}
