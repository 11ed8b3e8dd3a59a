package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	creditsrepo "leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Claim records an admitted claim on a lead.
type Claim struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	ProfessionalID   uuid.UUID
	CreditsCost      int
	QuoteSubmitted   bool
	QuoteSubmittedAt *time.Time
	CreatedAt        time.Time
}

// AdmissionParams carries the inputs of one admission attempt. The cost is
// computed before the transaction; everything the cost depends on is
// immutable lead data.
type AdmissionParams struct {
	LeadID         uuid.UUID
	ProfessionalID uuid.UUID
	CreditsCost    int
	Now            time.Time
}

// AdmissionResult reports what the committed transaction did.
type AdmissionResult struct {
	Claim       Claim
	HomeownerID uuid.UUID
	LeadFull    bool
}

// Ledger is the credit-side dependency of the admission transactions.
type Ledger interface {
	DebitTx(ctx context.Context, tx pgx.Tx, professionalID uuid.UUID, amount int, reason string, leadID *uuid.UUID, now time.Time) error
}

// Repository owns the two claim-creating transactions: the public pool
// admission and the direct-lead acceptance. Both enforce the same invariants
// inside one transaction: capacity, one claim per professional per lead, and
// a sufficient credit balance. Partial admission cannot be observed.
type Repository struct {
	pool   *pgxpool.Pool
	ledger Ledger
}

// New creates a new claims repository
func New(pool *pgxpool.Pool, ledger Ledger) *Repository {
	return &Repository{pool: pool, ledger: ledger}
}

// Admit runs the public-pool admission transaction. The capacity check and
// the slot take are a single conditional update, so concurrent attempts on
// the last slot serialize in the database and exactly one wins.
func (r *Repository) Admit(ctx context.Context, params AdmissionParams) (*AdmissionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin admission tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		homeownerID uuid.UUID
		claimCount  int
		maxClaims   int
		status      domain.Status
	)
	err = tx.QueryRow(ctx,
		`UPDATE leads SET
			claim_count = claim_count + 1,
			status = CASE WHEN claim_count + 1 >= max_claims AND status = 'open' THEN 'full' ELSE status END,
			updated_at = $2
		 WHERE id = $1 AND status IN ('open', 'quoted') AND claim_count < max_claims
		 RETURNING homeowner_id, claim_count, max_claims, status`,
		params.LeadID, params.Now,
	).Scan(&homeownerID, &claimCount, &maxClaims, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyAdmitFailure(ctx, tx, params.LeadID)
		}
		return nil, fmt.Errorf("failed to take claim slot: %w", err)
	}

	claim, err := r.insertClaim(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := r.ledger.DebitTx(ctx, tx, params.ProfessionalID, params.CreditsCost, "lead claim", &params.LeadID, params.Now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit admission tx: %w", err)
	}

	return &AdmissionResult{
		Claim:       *claim,
		HomeownerID: homeownerID,
		LeadFull:    status == domain.StatusFull,
	}, nil
}

// AdmitDirect runs the direct-lead acceptance transaction. It enforces the
// same capacity, uniqueness, and balance invariants as Admit, plus the
// targeting and privacy-window guards.
func (r *Repository) AdmitDirect(ctx context.Context, params AdmissionParams) (*AdmissionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin direct-accept tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var homeownerID uuid.UUID
	err = tx.QueryRow(ctx,
		`UPDATE leads SET
			direct_status = 'accepted', status = 'full',
			claim_count = claim_count + 1, updated_at = $3
		 WHERE id = $1 AND lead_type = 'direct' AND direct_status = 'pending'
			AND target_professional_id = $2 AND direct_expires_at >= $3
			AND status = 'open' AND claim_count < max_claims
		 RETURNING homeowner_id`,
		params.LeadID, params.ProfessionalID, params.Now,
	).Scan(&homeownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyDirectFailure(ctx, tx, params)
		}
		return nil, fmt.Errorf("failed to accept direct lead: %w", err)
	}

	claim, err := r.insertClaim(ctx, tx, params)
	if err != nil {
		return nil, err
	}

	if err := r.ledger.DebitTx(ctx, tx, params.ProfessionalID, params.CreditsCost, "direct lead accept", &params.LeadID, params.Now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit direct-accept tx: %w", err)
	}

	return &AdmissionResult{
		Claim:       *claim,
		HomeownerID: homeownerID,
		LeadFull:    true,
	}, nil
}

func (r *Repository) insertClaim(ctx context.Context, tx pgx.Tx, params AdmissionParams) (*Claim, error) {
	claim := Claim{
		ID:             uuid.New(),
		LeadID:         params.LeadID,
		ProfessionalID: params.ProfessionalID,
		CreditsCost:    params.CreditsCost,
		CreatedAt:      params.Now,
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO claims (id, lead_id, professional_id, credits_cost, quote_submitted, created_at)
		 VALUES ($1, $2, $3, $4, false, $5)`,
		claim.ID, claim.LeadID, claim.ProfessionalID, claim.CreditsCost, claim.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperr.Conflict("lead already claimed by this professional")
		}
		return nil, fmt.Errorf("failed to insert claim: %w", err)
	}
	return &claim, nil
}

func (r *Repository) classifyAdmitFailure(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) error {
	var status domain.Status
	var claimCount, maxClaims int
	err := tx.QueryRow(ctx,
		`SELECT status, claim_count, max_claims FROM leads WHERE id = $1`, leadID,
	).Scan(&status, &claimCount, &maxClaims)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("lead not found")
		}
		return fmt.Errorf("failed to inspect lead: %w", err)
	}

	switch {
	case status == domain.StatusFull || claimCount >= maxClaims:
		return apperr.BadRequest("lead has reached its claim ceiling")
	case status == domain.StatusExpired:
		return apperr.Gone("lead has expired")
	case status == domain.StatusCancelled:
		return apperr.Gone("lead has been cancelled")
	default:
		return apperr.BadRequest("lead is not open for claims")
	}
}

func (r *Repository) classifyDirectFailure(ctx context.Context, tx pgx.Tx, params AdmissionParams) error {
	var (
		leadType     domain.LeadType
		directStatus *domain.DirectStatus
		targetID     *uuid.UUID
		windowEnd    *time.Time
	)
	err := tx.QueryRow(ctx,
		`SELECT lead_type, direct_status, target_professional_id, direct_expires_at
		 FROM leads WHERE id = $1`, params.LeadID,
	).Scan(&leadType, &directStatus, &targetID, &windowEnd)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("lead not found")
		}
		return fmt.Errorf("failed to inspect lead: %w", err)
	}

	switch {
	case targetID == nil || *targetID != params.ProfessionalID:
		return apperr.Forbidden("lead is not routed to this professional")
	case directStatus != nil && *directStatus == domain.DirectPending &&
		windowEnd != nil && windowEnd.Before(params.Now):
		return apperr.Gone("the exclusive window for this lead has closed")
	default:
		return apperr.Conflict("direct lead has already been answered or converted")
	}
}

// GetByLeadAndProfessional fetches a professional's claim on a lead.
func (r *Repository) GetByLeadAndProfessional(ctx context.Context, leadID, professionalID uuid.UUID) (*Claim, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, lead_id, professional_id, credits_cost, quote_submitted, quote_submitted_at, created_at
		 FROM claims WHERE lead_id = $1 AND professional_id = $2`,
		leadID, professionalID,
	)
	return scanClaim(row)
}

// ListByProfessional returns a professional's claims, newest first.
func (r *Repository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit int) ([]Claim, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, professional_id, credits_cost, quote_submitted, quote_submitted_at, created_at
		 FROM claims WHERE professional_id = $1 ORDER BY created_at DESC LIMIT $2`,
		professionalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *claim)
	}
	return claims, rows.Err()
}

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.LeadID, &c.ProfessionalID, &c.CreditsCost, &c.QuoteSubmitted, &c.QuoteSubmittedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("claim not found")
		}
		return nil, fmt.Errorf("failed to scan claim: %w", err)
	}
	return &c, nil
}

var _ Ledger = (*creditsrepo.Repository)(nil)
