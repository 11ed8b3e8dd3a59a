package handler

import (
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/service"
	"leadmarket_backend/internal/leads/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for leads
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the lead routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/direct", h.CreateDirect)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/direct/decline", h.DeclineDirect)
}

func (h *Handler) Create(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleHomeowner)
	if id == nil {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToLeadResponse(lead, true))
}

func (h *Handler) CreateDirect(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleHomeowner)
	if id == nil {
		return
	}

	var req transport.CreateDirectLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	lead, err := h.svc.CreateDirect(c.Request.Context(), id.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToLeadResponse(lead, true))
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var q transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	params := repository.ListParams{
		Category: q.Category,
		Location: q.Location,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Status != "" {
		status := domain.Status(q.Status)
		params.Status = &status
	}

	result, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, 0, len(result.Items))
	for i := range result.Items {
		lead := &result.Items[i]
		items = append(items, transport.ToLeadResponse(lead, lead.HomeownerID == identity.UserID()))
	}

	httpkit.OK(c, transport.ListLeadsResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	includeContact := lead.HomeownerID == identity.UserID() ||
		(lead.TargetProfessionalID != nil && *lead.TargetProfessionalID == identity.UserID())
	httpkit.OK(c, transport.ToLeadResponse(lead, includeContact))
}

func (h *Handler) Cancel(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleHomeowner)
	if id == nil {
		return
	}

	leadID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), leadID, id.UserID()); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "cancelled"})
}

func (h *Handler) DeclineDirect(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	leadID, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.DeclineDirect(c.Request.Context(), leadID, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead, false))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return id, true
}
