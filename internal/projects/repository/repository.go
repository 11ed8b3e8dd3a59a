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

// Project is the engagement created from a settled quote.
type Project struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	QuoteID        uuid.UUID
	HomeownerID    uuid.UUID
	ProfessionalID uuid.UUID
	Status         string
	CreatedAt      time.Time
}

const StatusActive = "active"

const projectColumns = `id, lead_id, quote_id, homeowner_id, professional_id, status, created_at`

// Repository provides database operations for projects.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new projects repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a project for a settled quote. The unique quote_id key
// makes it idempotent: a retried task finds the existing row and returns it.
func (r *Repository) Create(ctx context.Context, p *Project) (*Project, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO projects (id, lead_id, quote_id, homeowner_id, professional_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (quote_id) DO NOTHING
		 RETURNING `+projectColumns,
		p.ID, p.LeadID, p.QuoteID, p.HomeownerID, p.ProfessionalID, p.Status, p.CreatedAt,
	)

	project, err := scanProject(row)
	if err == nil {
		return project, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return r.GetByQuoteID(ctx, p.QuoteID)
}

// GetByQuoteID fetches the project created from a quote.
func (r *Repository) GetByQuoteID(ctx context.Context, quoteID uuid.UUID) (*Project, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE quote_id = $1`, quoteID)
	return scanProject(row)
}

// ListByParticipant returns projects the caller takes part in, newest first.
func (r *Repository) ListByParticipant(ctx context.Context, userID uuid.UUID, limit int) ([]Project, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE homeowner_id = $1 OR professional_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.LeadID, &p.QuoteID, &p.HomeownerID, &p.ProfessionalID, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}
