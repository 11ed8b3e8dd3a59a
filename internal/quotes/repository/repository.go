package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// StandardDeclineReason is attached to every sibling quote voided during
// settlement.
const StandardDeclineReason = "Another quote was selected"

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Quote is a professional's priced offer on a claimed lead.
type Quote struct {
	ID                  uuid.UUID
	LeadID              uuid.UUID
	ProfessionalID      uuid.UUID
	Status              Status
	Message             string
	SubtotalCents       int64
	TaxCents            int64
	TotalCents          int64
	EstimatedStartDate  time.Time
	EstimatedCompletion time.Time
	AttachmentKeys      []string
	DeclineReason       *string
	DecidedAt           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Item is one priced line of a quote.
type Item struct {
	ID             uuid.UUID
	QuoteID        uuid.UUID
	Description    string
	Quantity       float64
	UnitPriceCents int64
	LineTotalCents int64
	Position       int
}

// DeclinedSibling identifies a pending quote voided by settlement.
type DeclinedSibling struct {
	QuoteID        uuid.UUID
	ProfessionalID uuid.UUID
}

// SettlementResult reports what the accept transaction committed.
type SettlementResult struct {
	Quote            Quote
	HomeownerID      uuid.UUID
	DeclinedSiblings []DeclinedSibling
}

// SortOrder controls quote listings.
type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

const quoteColumns = `
	id, lead_id, professional_id, status, message,
	subtotal_cents, tax_cents, total_cents,
	estimated_start_date, estimated_completion_date,
	attachment_keys, decline_reason, decided_at, created_at, updated_at`

// Repository provides database operations for quotes. Settlement is the only
// write path that touches more than one quote, and it runs as a single
// transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithItems inserts a quote and its line items, marks the claim as
// quoted, and advances the lead to quoted where permitted, all in one
// transaction.
func (r *Repository) CreateWithItems(ctx context.Context, quote *Quote, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin quote tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quotes (
			id, lead_id, professional_id, status, message,
			subtotal_cents, tax_cents, total_cents,
			estimated_start_date, estimated_completion_date,
			attachment_keys, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		quote.ID, quote.LeadID, quote.ProfessionalID, quote.Status, quote.Message,
		quote.SubtotalCents, quote.TaxCents, quote.TotalCents,
		quote.EstimatedStartDate, quote.EstimatedCompletion,
		quote.AttachmentKeys, quote.CreatedAt, quote.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Conflict("a quote for this lead already exists")
		}
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	if err := insertItems(ctx, tx, quote.ID, items); err != nil {
		return err
	}

	result, err := tx.Exec(ctx,
		`UPDATE claims SET quote_submitted = true, quote_submitted_at = $3
		 WHERE lead_id = $1 AND professional_id = $2`,
		quote.LeadID, quote.ProfessionalID, quote.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark claim quoted: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.BadRequest("no claim on this lead")
	}

	_, err = tx.Exec(ctx,
		`UPDATE leads SET status = 'quoted', updated_at = $2
		 WHERE id = $1 AND status IN ('open', 'full')`,
		quote.LeadID, quote.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to advance lead to quoted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit quote tx: %w", err)
	}
	return nil
}

// UpdateWithItems replaces a pending quote's payload, author-only.
func (r *Repository) UpdateWithItems(ctx context.Context, quote *Quote, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin quote update tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE quotes SET
			message = $3, subtotal_cents = $4, tax_cents = $5, total_cents = $6,
			estimated_start_date = $7, estimated_completion_date = $8,
			attachment_keys = $9, updated_at = $10
		 WHERE id = $1 AND professional_id = $2 AND status = 'pending'`,
		quote.ID, quote.ProfessionalID,
		quote.Message, quote.SubtotalCents, quote.TaxCents, quote.TotalCents,
		quote.EstimatedStartDate, quote.EstimatedCompletion,
		quote.AttachmentKeys, quote.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.classifyAuthorFailure(ctx, quote.ID, quote.ProfessionalID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quote_items WHERE quote_id = $1`, quote.ID); err != nil {
		return fmt.Errorf("failed to clear quote items: %w", err)
	}
	if err := insertItems(ctx, tx, quote.ID, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit quote update tx: %w", err)
	}
	return nil
}

// Accept runs the settlement transaction: the target quote is accepted, the
// lead is accepted, and every sibling pending quote is declined with the
// standard reason. The three effects commit together or not at all.
func (r *Repository) Accept(ctx context.Context, quoteID, homeownerID uuid.UUID, now time.Time) (*SettlementResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		leadID      uuid.UUID
		leadOwner   uuid.UUID
		quoteStatus Status
	)
	err = tx.QueryRow(ctx,
		`SELECT q.lead_id, l.homeowner_id, q.status
		 FROM quotes q JOIN leads l ON l.id = q.lead_id
		 WHERE q.id = $1`,
		quoteID,
	).Scan(&leadID, &leadOwner, &quoteStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("quote not found")
		}
		return nil, fmt.Errorf("failed to load quote for settlement: %w", err)
	}
	if leadOwner != homeownerID {
		return nil, apperr.Forbidden("only the lead owner may accept a quote")
	}

	row := tx.QueryRow(ctx,
		`UPDATE quotes SET status = 'accepted', decided_at = $2, updated_at = $2
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+quoteColumns,
		quoteID, now,
	)
	quote, err := scanQuote(row)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Conflict("quote has already been decided")
		}
		return nil, err
	}

	// Acceptance is terminal and unconditional for the lead.
	if _, err := tx.Exec(ctx,
		`UPDATE leads SET status = 'accepted', updated_at = $2 WHERE id = $1`,
		leadID, now,
	); err != nil {
		return nil, fmt.Errorf("failed to accept lead: %w", err)
	}

	rows, err := tx.Query(ctx,
		`UPDATE quotes SET status = 'declined', decline_reason = $3, decided_at = $2, updated_at = $2
		 WHERE lead_id = $1 AND id <> $4 AND status = 'pending'
		 RETURNING id, professional_id`,
		leadID, now, StandardDeclineReason, quoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decline sibling quotes: %w", err)
	}
	var siblings []DeclinedSibling
	for rows.Next() {
		var s DeclinedSibling
		if err := rows.Scan(&s.QuoteID, &s.ProfessionalID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan declined sibling: %w", err)
		}
		siblings = append(siblings, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate declined siblings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement tx: %w", err)
	}

	return &SettlementResult{
		Quote:            *quote,
		HomeownerID:      homeownerID,
		DeclinedSiblings: siblings,
	}, nil
}

// Decline transitions a single pending quote to declined, owner-only,
// independent of its siblings.
func (r *Repository) Decline(ctx context.Context, quoteID, homeownerID uuid.UUID, reason string, now time.Time) (*Quote, error) {
	var reasonParam interface{}
	if reason != "" {
		reasonParam = reason
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE quotes q SET status = 'declined', decline_reason = $3, decided_at = $4, updated_at = $4
		 FROM leads l
		 WHERE q.id = $1 AND q.lead_id = l.id AND l.homeowner_id = $2 AND q.status = 'pending'
		 RETURNING q.id, q.lead_id, q.professional_id, q.status, q.message,
			q.subtotal_cents, q.tax_cents, q.total_cents,
			q.estimated_start_date, q.estimated_completion_date,
			q.attachment_keys, q.decline_reason, q.decided_at, q.created_at, q.updated_at`,
		quoteID, homeownerID, reasonParam, now,
	)
	quote, err := scanQuote(row)
	if err == nil {
		return quote, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return nil, r.classifyOwnerFailure(ctx, quoteID, homeownerID)
}

// Delete removes a pending quote, author-only, and releases the claim's
// quoted flag so the professional may submit again.
func (r *Repository) Delete(ctx context.Context, quoteID, professionalID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin quote delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var leadID uuid.UUID
	err = tx.QueryRow(ctx,
		`DELETE FROM quotes WHERE id = $1 AND professional_id = $2 AND status = 'pending'
		 RETURNING lead_id`,
		quoteID, professionalID,
	).Scan(&leadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyAuthorFailure(ctx, quoteID, professionalID)
		}
		return fmt.Errorf("failed to delete quote: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE claims SET quote_submitted = false, quote_submitted_at = NULL
		 WHERE lead_id = $1 AND professional_id = $2`,
		leadID, professionalID,
	); err != nil {
		return fmt.Errorf("failed to release claim quote flag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit quote delete tx: %w", err)
	}
	return nil
}

// GetByID fetches a quote.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Quote, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	return scanQuote(row)
}

// GetItems fetches a quote's line items in position order.
func (r *Repository) GetItems(ctx context.Context, quoteID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, quote_id, description, quantity, unit_price_cents, line_total_cents, position
		 FROM quote_items WHERE quote_id = $1 ORDER BY position ASC`,
		quoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.Description, &it.Quantity, &it.UnitPriceCents, &it.LineTotalCents, &it.Position); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListByLead returns all quotes on a lead ordered per the caller's sort.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID, sort SortOrder) ([]Quote, error) {
	order := "created_at DESC"
	switch sort {
	case SortPriceAsc:
		order = "total_cents ASC"
	case SortPriceDesc:
		order = "total_cents DESC"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE lead_id = $1 ORDER BY `+order,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *quote)
	}
	return quotes, rows.Err()
}

// GetByLeadAndProfessional fetches a professional's quote on a lead.
func (r *Repository) GetByLeadAndProfessional(ctx context.Context, leadID, professionalID uuid.UUID) (*Quote, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE lead_id = $1 AND professional_id = $2`,
		leadID, professionalID,
	)
	return scanQuote(row)
}

func insertItems(ctx context.Context, tx pgx.Tx, quoteID uuid.UUID, items []Item) error {
	for i := range items {
		it := &items[i]
		_, err := tx.Exec(ctx,
			`INSERT INTO quote_items (id, quote_id, description, quantity, unit_price_cents, line_total_cents, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, quoteID, it.Description, it.Quantity, it.UnitPriceCents, it.LineTotalCents, it.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quote item: %w", err)
		}
	}
	return nil
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.LeadID, &q.ProfessionalID, &q.Status, &q.Message,
		&q.SubtotalCents, &q.TaxCents, &q.TotalCents,
		&q.EstimatedStartDate, &q.EstimatedCompletion,
		&q.AttachmentKeys, &q.DeclineReason, &q.DecidedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("quote not found")
		}
		return nil, fmt.Errorf("failed to scan quote: %w", err)
	}
	return &q, nil
}

func (r *Repository) classifyAuthorFailure(ctx context.Context, quoteID, professionalID uuid.UUID) error {
	quote, err := r.GetByID(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.ProfessionalID != professionalID {
		return apperr.Forbidden("only the quote author may modify it")
	}
	return apperr.BadRequest("only pending quotes can be modified")
}

func (r *Repository) classifyOwnerFailure(ctx context.Context, quoteID, homeownerID uuid.UUID) error {
	var leadOwner uuid.UUID
	var status Status
	err := r.pool.QueryRow(ctx,
		`SELECT l.homeowner_id, q.status
		 FROM quotes q JOIN leads l ON l.id = q.lead_id
		 WHERE q.id = $1`,
		quoteID,
	).Scan(&leadOwner, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("quote not found")
		}
		return fmt.Errorf("failed to inspect quote: %w", err)
	}
	if leadOwner != homeownerID {
		return apperr.Forbidden("only the lead owner may decide a quote")
	}
	return apperr.Conflict("quote has already been decided")
}
