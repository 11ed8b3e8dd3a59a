package notification

import (
	"context"
	"fmt"
	"time"

	creditsrepo "leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/notification/repository"

	"github.com/google/uuid"
)

// RegisterHandlers subscribes the module to the domain events it fans out
// for. Handler errors are logged by the bus; nothing here can fail a
// marketplace operation.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadClaimed{}.EventName(), events.HandlerFunc(m.onLeadClaimed))
	bus.Subscribe(events.LeadExpired{}.EventName(), events.HandlerFunc(m.onLeadExpired))
	bus.Subscribe(events.DirectLeadReceived{}.EventName(), events.HandlerFunc(m.onDirectLeadReceived))
	bus.Subscribe(events.DirectLeadAccepted{}.EventName(), events.HandlerFunc(m.onDirectLeadAccepted))
	bus.Subscribe(events.DirectLeadDeclined{}.EventName(), events.HandlerFunc(m.onDirectLeadDeclined))
	bus.Subscribe(events.DirectLeadConverted{}.EventName(), events.HandlerFunc(m.onDirectLeadConverted))
	bus.Subscribe(events.QuoteSubmitted{}.EventName(), events.HandlerFunc(m.onQuoteSubmitted))
	bus.Subscribe(events.QuoteAccepted{}.EventName(), events.HandlerFunc(m.onQuoteAccepted))
	bus.Subscribe(events.QuoteDeclined{}.EventName(), events.HandlerFunc(m.onQuoteDeclined))
}

func (m *Module) onLeadClaimed(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.LeadClaimed)
	if !ok {
		return nil
	}
	return m.notify(ctx, &repository.Notification{
		UserID: evt.HomeownerID,
		Kind:   "lead.claimed",
		Title:  "A professional claimed your lead",
		Body:   "A professional has purchased access to your request and may contact you soon.",
		LeadID: &evt.LeadID,
	})
}

func (m *Module) onLeadExpired(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.LeadExpired)
	if !ok {
		return nil
	}
	return m.notify(ctx, &repository.Notification{
		UserID: evt.HomeownerID,
		Kind:   "lead.expired",
		Title:  "Your lead has expired",
		Body:   "Your request reached its expiry date without being settled. You can post it again.",
		LeadID: &evt.LeadID,
	})
}

func (m *Module) onDirectLeadReceived(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.DirectLeadReceived)
	if !ok {
		return nil
	}
	if err := m.notify(ctx, &repository.Notification{
		UserID: evt.TargetProfessionalID,
		Kind:   "lead.direct.received",
		Title:  "You received a direct lead",
		Body:   fmt.Sprintf("A homeowner sent you a %s request directly. You have exclusive access for a limited time.", evt.Category),
		LeadID: &evt.LeadID,
	}); err != nil {
		return err
	}

	m.emailProfessional(ctx, evt.TargetProfessionalID,
		"You received a direct lead",
		fmt.Sprintf("<p>A homeowner sent you a <strong>%s</strong> request directly. It is exclusively yours until the window closes.</p>", evt.Category))
	return nil
}

func (m *Module) onDirectLeadAccepted(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.DirectLeadAccepted)
	if !ok {
		return nil
	}
	return m.notify(ctx, &repository.Notification{
		UserID: evt.HomeownerID,
		Kind:   "lead.direct.accepted",
		Title:  "Your direct lead was accepted",
		Body:   "The professional you chose accepted your request and may contact you soon.",
		LeadID: &evt.LeadID,
	})
}

func (m *Module) onDirectLeadDeclined(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.DirectLeadDeclined)
	if !ok {
		return nil
	}
	return m.notify(ctx, &repository.Notification{
		UserID: evt.HomeownerID,
		Kind:   "lead.direct.declined",
		Title:  "Your direct lead was declined",
		Body:   "The professional you chose declined your request. It is now visible to all professionals.",
		LeadID: &evt.LeadID,
	})
}

func (m *Module) onDirectLeadConverted(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.DirectLeadConverted)
	if !ok {
		return nil
	}
	return m.notify(ctx, &repository.Notification{
		UserID: evt.HomeownerID,
		Kind:   "lead.direct.converted",
		Title:  "Your direct lead is now public",
		Body:   "The professional did not respond in time, so your request is now visible to all professionals.",
		LeadID: &evt.LeadID,
	})
}

func (m *Module) onQuoteSubmitted(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.QuoteSubmitted)
	if !ok {
		return nil
	}
	return m.notify(ctx, &repository.Notification{
		UserID:  evt.HomeownerID,
		Kind:    "quote.submitted",
		Title:   "You received a quote",
		Body:    "A professional submitted a quote on your request. Review it and decide.",
		LeadID:  &evt.LeadID,
		QuoteID: &evt.QuoteID,
	})
}

func (m *Module) onQuoteAccepted(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.QuoteAccepted)
	if !ok {
		return nil
	}
	if err := m.notify(ctx, &repository.Notification{
		UserID:  evt.ProfessionalID,
		Kind:    "quote.accepted",
		Title:   "Your quote was accepted",
		Body:    "Congratulations! The homeowner accepted your quote. A project has been opened.",
		LeadID:  &evt.LeadID,
		QuoteID: &evt.QuoteID,
	}); err != nil {
		return err
	}

	m.emailProfessional(ctx, evt.ProfessionalID,
		"Your quote was accepted",
		"<p>Congratulations! The homeowner accepted your quote. Open the app to see the project details.</p>")
	return nil
}

func (m *Module) onQuoteDeclined(ctx context.Context, e events.Event) error {
	evt, ok := e.(events.QuoteDeclined)
	if !ok {
		return nil
	}
	body := "The homeowner declined your quote."
	if evt.Reason != "" {
		body = fmt.Sprintf("The homeowner declined your quote: %s", evt.Reason)
	}
	return m.notify(ctx, &repository.Notification{
		UserID:  evt.ProfessionalID,
		Kind:    "quote.declined",
		Title:   "Your quote was declined",
		Body:    body,
		LeadID:  &evt.LeadID,
		QuoteID: &evt.QuoteID,
	})
}

func (m *Module) notify(ctx context.Context, n *repository.Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	if err := m.repo.Insert(ctx, n); err != nil {
		m.log.Error("failed to store notification", "kind", n.Kind, "user_id", n.UserID, "error", err)
		return err
	}
	return nil
}

// emailProfessional is best-effort: a missing address or SMTP failure is
// logged and swallowed.
func (m *Module) emailProfessional(ctx context.Context, professionalID uuid.UUID, subject, html string) {
	pro, err := m.pros.GetProfessional(ctx, professionalID)
	if err != nil || pro.Email == "" {
		return
	}
	if err := m.sender.Send(ctx, pro.Email, subject, html); err != nil {
		m.log.Error("failed to send notification email", "professional_id", professionalID, "error", err)
	}
}

// professionalReader narrows the credits repository for email lookups.
type professionalReader interface {
	GetProfessional(ctx context.Context, id uuid.UUID) (*creditsrepo.Professional, error)
}
