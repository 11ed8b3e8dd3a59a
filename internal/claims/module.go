// Package claims provides the admission controller module: claiming public
// leads and accepting direct leads, with capacity, uniqueness, verification,
// and credit debit enforced as one atomic unit.
package claims

import (
	"leadmarket_backend/internal/claims/handler"
	"leadmarket_backend/internal/claims/repository"
	"leadmarket_backend/internal/claims/service"
	creditsrepo "leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	leadssvc "leadmarket_backend/internal/leads/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the claims domain module
type Module struct {
	handler    *handler.Handler
	repository *repository.Repository
}

// NewModule creates a new claims module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, leads *leadssvc.Service, ledger *creditsrepo.Repository) *Module {
	repo := repository.New(pool, ledger)
	svc := service.New(repo, leads, ledger, bus)
	h := handler.New(svc)

	return &Module{
		handler:    h,
		repository: repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "claims"
}

// Repository returns the claims repository for cross-module wiring (quote
// submission verifies the claim through it).
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterClaimRoutes(ctx.Protected.Group("/claims"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
