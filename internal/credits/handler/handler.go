package handler

import (
	"leadmarket_backend/internal/credits/service"
	"leadmarket_backend/internal/credits/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for the credit ledger
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new credits handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the credit routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balance", h.Balance)
	rg.GET("/transactions", h.ListTransactions)
}

func (h *Handler) Balance(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	result, err := h.svc.Balance(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	var req transport.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	result, err := h.svc.Transactions(c.Request.Context(), id.UserID(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
