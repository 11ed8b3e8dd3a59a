// Package projects materializes settled quotes into projects. Creation runs
// in the background worker; the HTTP surface is read-only.
package projects

import (
	"time"

	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/projects/repository"
	"leadmarket_backend/internal/projects/service"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the projects domain module
type Module struct {
	service *service.Service
}

// NewModule creates a new projects module with all dependencies wired
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{service: svc}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "projects"
}

// Service returns the project service for the background worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rg := ctx.Protected.Group("/projects")
	rg.GET("", m.listMine)
}

type projectResponse struct {
	ID             uuid.UUID `json:"id"`
	LeadID         uuid.UUID `json:"leadId"`
	QuoteID        uuid.UUID `json:"quoteId"`
	HomeownerID    uuid.UUID `json:"homeownerId"`
	ProfessionalID uuid.UUID `json:"professionalId"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (m *Module) listMine(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	projects, err := m.service.ListMine(c.Request.Context(), identity.UserID(), 50)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, projectResponse{
			ID:             p.ID,
			LeadID:         p.LeadID,
			QuoteID:        p.QuoteID,
			HomeownerID:    p.HomeownerID,
			ProfessionalID: p.ProfessionalID,
			Status:         p.Status,
			CreatedAt:      p.CreatedAt,
		})
	}
	httpkit.OK(c, gin.H{"items": items})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
