// Package quotes provides the quote lifecycle module: submission on claimed
// leads, replacement, single-winner settlement, declines, and withdrawal.
package quotes

import (
	"leadmarket_backend/internal/adapters/storage"
	claimsrepo "leadmarket_backend/internal/claims/repository"
	creditsrepo "leadmarket_backend/internal/credits/repository"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	leadssvc "leadmarket_backend/internal/leads/service"
	"leadmarket_backend/internal/quotes/handler"
	"leadmarket_backend/internal/quotes/repository"
	"leadmarket_backend/internal/quotes/service"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the quotes domain module
type Module struct {
	handler *handler.Handler
}

// Deps bundles the cross-module dependencies of the quote lifecycle.
type Deps struct {
	Claims      *claimsrepo.Repository
	Leads       *leadssvc.Service
	Credits     *creditsrepo.Repository
	Projects    service.ProjectEnqueuer
	Attachments *storage.AttachmentService
}

// NewModule creates a new quotes module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, deps Deps, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, deps.Claims, deps.Leads, deps.Credits, deps.Projects, bus, log)
	h := handler.New(svc, deps.Attachments, val)

	return &Module{handler: h}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "quotes"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterLeadRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterQuoteRoutes(ctx.Protected.Group("/quotes"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
