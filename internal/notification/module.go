// Package notification fans domain events out to in-app notifications and
// best-effort email. It is strictly downstream: nothing in the marketplace
// waits on it.
package notification

import (
	"leadmarket_backend/internal/email"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/notification/repository"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the notification module
type Module struct {
	repo   *repository.Repository
	pros   professionalReader
	sender email.Sender
	log    *logger.Logger
}

// NewModule creates a new notification module with all dependencies wired
func NewModule(pool *pgxpool.Pool, pros professionalReader, sender email.Sender, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NopSender{}
	}
	return &Module{
		repo:   repository.New(pool),
		pros:   pros,
		sender: sender,
		log:    log,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rg := ctx.Protected.Group("/notifications")
	rg.GET("", m.list)
	rg.POST("/:id/read", m.markRead)
}

func (m *Module) list(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := m.repo.ListByUser(c.Request.Context(), identity.UserID(), 50)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (m *Module) markRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid notification id", nil)
		return
	}

	if err := m.repo.MarkRead(c.Request.Context(), id, identity.UserID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": "read"})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
