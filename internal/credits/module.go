// Package credits provides the credit ledger domain module: professional
// balances, the append-only transaction ledger, and the claim cost table.
package credits

import (
	"leadmarket_backend/internal/credits/handler"
	"leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/credits/service"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the credits domain module
type Module struct {
	handler    *handler.Handler
	repository *repository.Repository
}

// NewModule creates a new credits module with all dependencies wired
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		repository: repo,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "credits"
}

// Repository returns the ledger repository for cross-module wiring
// (admission transactions debit through it).
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	credits := ctx.Protected.Group("/credits")
	m.handler.RegisterRoutes(credits)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
