package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

const leadColumns = `
	id, homeowner_id, category, location, description, contact_phone,
	budget_bracket, urgency, lead_type, target_professional_id,
	direct_status, direct_expires_at, converted_to_public_at,
	status, claim_count, max_claims, expires_at, created_at, updated_at`

// ListParams contains parameters for listing pool leads.
type ListParams struct {
	Status   *domain.Status
	Category string
	Location string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing leads.
type ListResult struct {
	Items      []domain.Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ConvertedLead identifies a lead the sweep moved into the public pool.
type ConvertedLead struct {
	ID          uuid.UUID
	HomeownerID uuid.UUID
}

// Repository provides database operations for leads.
// Status, claim_count, and direct_status are only ever written through the
// conditional updates in this package, the admission transactions in
// internal/claims/repository, and the settlement transaction in
// internal/quotes/repository.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	query := `
		INSERT INTO leads (
			id, homeowner_id, category, location, description, contact_phone,
			budget_bracket, urgency, lead_type, target_professional_id,
			direct_status, direct_expires_at, converted_to_public_at,
			status, claim_count, max_claims, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.pool.Exec(ctx, query,
		lead.ID, lead.HomeownerID, lead.Category, lead.Location, lead.Description, lead.ContactPhone,
		lead.BudgetBracket, lead.Urgency, lead.LeadType, lead.TargetProfessionalID,
		lead.DirectStatus, lead.DirectExpiresAt, lead.ConvertedToPublicAt,
		lead.Status, lead.ClaimCount, lead.MaxClaims, lead.ExpiresAt, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.HomeownerID, &l.Category, &l.Location, &l.Description, &l.ContactPhone,
		&l.BudgetBracket, &l.Urgency, &l.LeadType, &l.TargetProfessionalID,
		&l.DirectStatus, &l.DirectExpiresAt, &l.ConvertedToPublicAt,
		&l.Status, &l.ClaimCount, &l.MaxClaims, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}
	return &l, nil
}

// GetByID retrieves a lead by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// ExpireIfDue lazily expires a single lead past its outer bound. The guard in
// the WHERE clause is the only mechanism that derives expired, so read paths
// and the sweep can both call it without disagreeing. Returns true if the
// lead flipped.
func (r *Repository) ExpireIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = 'expired', updated_at = $2
		 WHERE id = $1 AND status IN ('open', 'full', 'quoted') AND expires_at < $2`,
		id, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to expire lead: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ExpireDue bulk-expires all leads past their outer bound, returning the
// affected leads for event emission. Accepted leads are untouchable by
// construction of the status guard.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) ([]ConvertedLead, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE leads SET status = 'expired', updated_at = $1
		 WHERE status IN ('open', 'full', 'quoted') AND expires_at < $1
		 RETURNING id, homeowner_id`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to expire due leads: %w", err)
	}
	defer rows.Close()

	var out []ConvertedLead
	for rows.Next() {
		var c ConvertedLead
		if err := rows.Scan(&c.ID, &c.HomeownerID); err != nil {
			return nil, fmt.Errorf("failed to scan expired lead: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Cancel transitions an open lead to cancelled, owner-only.
func (r *Repository) Cancel(ctx context.Context, id, homeownerID uuid.UUID) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = 'cancelled', updated_at = $3
		 WHERE id = $1 AND homeowner_id = $2 AND status = 'open'`,
		id, homeownerID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to cancel lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		lead, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if lead.HomeownerID != homeownerID {
			return apperr.Forbidden("only the lead owner may cancel it")
		}
		return apperr.BadRequest("only open leads can be cancelled")
	}
	return nil
}

// DeclineDirect records the targeted professional's decline and moves the
// lead straight into the public pool without waiting for the window. The
// pending guard makes it race-safe against the sweep's conversion.
func (r *Repository) DeclineDirect(ctx context.Context, id, professionalID uuid.UUID, ceiling int) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE leads SET
			direct_status = 'declined', lead_type = 'public',
			max_claims = $3, converted_to_public_at = $4, updated_at = $4
		 WHERE id = $1 AND lead_type = 'direct' AND direct_status = 'pending'
			AND target_professional_id = $2
		 RETURNING `+leadColumns,
		id, professionalID, ceiling, time.Now(),
	)

	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return nil, r.classifyDirectFailure(ctx, id, professionalID)
}

// ConvertDirectToPublic performs the sweep-driven conversion. It is one-way
// and idempotent-guarded: a second call finds direct_status != 'pending' and
// fails with a conflict.
func (r *Repository) ConvertDirectToPublic(ctx context.Context, id uuid.UUID, ceiling int) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE leads SET
			direct_status = 'converted', lead_type = 'public',
			max_claims = $2, converted_to_public_at = $3, updated_at = $3
		 WHERE id = $1 AND lead_type = 'direct' AND direct_status = 'pending'
		 RETURNING `+leadColumns,
		id, ceiling, time.Now(),
	)

	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperr.Conflict("direct lead has already been converted or answered")
}

// ListDirectPendingPastWindow returns direct leads whose privacy window has
// closed but whose conversion has not run yet.
func (r *Repository) ListDirectPendingPastWindow(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id FROM leads
		 WHERE lead_type = 'direct' AND direct_status = 'pending' AND direct_expires_at < $1
		 ORDER BY direct_expires_at ASC LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query direct leads past window: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lead id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List retrieves pool-visible leads with filtering and pagination. Direct
// leads still inside their privacy window are hidden.
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	var statusParam interface{}
	if params.Status != nil {
		statusParam = string(*params.Status)
	}
	var categoryParam interface{}
	if params.Category != "" {
		categoryParam = params.Category
	}
	var locationParam interface{}
	if params.Location != "" {
		locationParam = params.Location
	}

	baseQuery := `
		FROM leads
		WHERE NOT (lead_type = 'direct' AND direct_status = 'pending')
			AND ($1::text IS NULL OR status::text = $1)
			AND ($2::text IS NULL OR category = $2)
			AND ($3::text IS NULL OR location = $3)
	`
	args := []interface{}{statusParam, categoryParam, locationParam}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	rows, err := r.pool.Query(ctx,
		"SELECT "+leadColumns+baseQuery+" ORDER BY created_at DESC LIMIT $4 OFFSET $5",
		append(args, params.PageSize, offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var items []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// classifyDirectFailure turns a zero-row direct update into the precise
// domain error the caller should see.
func (r *Repository) classifyDirectFailure(ctx context.Context, id, professionalID uuid.UUID) error {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lead.LeadType != domain.TypeDirect && lead.ConvertedToPublicAt == nil {
		return apperr.BadRequest("lead is not a direct lead")
	}
	if lead.TargetProfessionalID == nil || *lead.TargetProfessionalID != professionalID {
		return apperr.Forbidden("lead is not routed to this professional")
	}
	return apperr.Conflict("direct lead has already been answered or converted")
}
