package handler

import (
	"leadmarket_backend/internal/claims/service"
	"leadmarket_backend/internal/claims/transport"
	"leadmarket_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for claim admission
type Handler struct {
	svc *service.Service
}

// New creates a new claims handler
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterLeadRoutes mounts the admission endpoints under /leads.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/claim", h.Claim)
	rg.POST("/:id/direct/accept", h.AcceptDirect)
}

// RegisterClaimRoutes mounts the claim listing endpoints under /claims.
func (h *Handler) RegisterClaimRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
}

func (h *Handler) Claim(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid lead id", nil)
		return
	}

	result, err := h.svc.Claim(c.Request.Context(), id.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToAdmissionResponse(result))
}

func (h *Handler) AcceptDirect(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid lead id", nil)
		return
	}

	result, err := h.svc.AcceptDirect(c.Request.Context(), id.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToAdmissionResponse(result))
}

func (h *Handler) ListMine(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	var q transport.ListClaimsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, 400, "invalid request", err.Error())
		return
	}

	claims, err := h.svc.ListMine(c.Request.Context(), id.UserID(), q.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.ClaimResponse, 0, len(claims))
	for i := range claims {
		items = append(items, transport.ToClaimResponse(&claims[i]))
	}
	httpkit.OK(c, gin.H{"items": items})
}
