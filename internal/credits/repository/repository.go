package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadmarket_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Tier is a professional's vetting level.
type Tier string

const (
	TierPending  Tier = "pending"
	TierBasic    Tier = "basic"
	TierApproved Tier = "approved"
	TierPremium  Tier = "premium"
	TierRejected Tier = "rejected"
)

// TopTier is the tier that earns the claim-cost discount.
const TopTier = TierPremium

// CanClaim reports whether the tier passes the claim-time verification gate.
func (t Tier) CanClaim() bool {
	return t != TierPending && t != TierRejected
}

// CanQuote reports whether the tier passes the stricter quote-time gate.
func (t Tier) CanQuote() bool {
	return t == TierApproved || t == TierPremium
}

// Professional is the database model for a professional's marketplace profile.
type Professional struct {
	ID               uuid.UUID `db:"id"`
	Name             string    `db:"name"`
	Email            string    `db:"email"`
	VerificationTier Tier      `db:"verification_tier"`
	CreditBalance    int       `db:"credit_balance"`
	CreatedAt        time.Time `db:"created_at"`
}

// Transaction is one ledger entry. Debits are negative amounts.
type Transaction struct {
	ID             uuid.UUID  `db:"id"`
	ProfessionalID uuid.UUID  `db:"professional_id"`
	Amount         int        `db:"amount"`
	Reason         string     `db:"reason"`
	LeadID         *uuid.UUID `db:"lead_id"`
	CreatedAt      time.Time  `db:"created_at"`
}

const professionalNotFoundMsg = "professional not found"

// ── Repository ────────────────────────────────────────────────────────────────

// Repository provides database operations for the credit ledger and
// professional profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new credits repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProfessional retrieves a professional's profile including tier and balance.
func (r *Repository) GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error) {
	var p Professional
	query := `
		SELECT id, name, email, verification_tier, credit_balance, created_at
		FROM professionals WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.VerificationTier, &p.CreditBalance, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(professionalNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	return &p, nil
}

// Balance returns the professional's current credit balance.
func (r *Repository) Balance(ctx context.Context, id uuid.UUID) (int, error) {
	var balance int
	err := r.pool.QueryRow(ctx, `SELECT credit_balance FROM professionals WHERE id = $1`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperr.NotFound(professionalNotFoundMsg)
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// DebitTx debits credits inside the caller's transaction. The conditional
// UPDATE is the enforcement point: zero rows affected means the balance was
// insufficient at commit time, regardless of what a prior read showed.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, professionalID uuid.UUID, amount int, reason string, leadID *uuid.UUID, now time.Time) error {
	if amount <= 0 {
		return apperr.Validation("debit amount must be positive")
	}

	result, err := tx.Exec(ctx,
		`UPDATE professionals SET credit_balance = credit_balance - $2 WHERE id = $1 AND credit_balance >= $2`,
		professionalID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.InsufficientCredits("insufficient credit balance")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_transactions (id, professional_id, amount, reason, lead_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), professionalID, -amount, reason, leadID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// ListTransactions returns a professional's ledger entries, newest first.
func (r *Repository) ListTransactions(ctx context.Context, professionalID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, professional_id, amount, reason, lead_id, created_at
		 FROM credit_transactions WHERE professional_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		professionalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ProfessionalID, &t.Amount, &t.Reason, &t.LeadID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return items, nil
}
