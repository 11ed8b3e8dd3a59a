package handler

import (
	"net/http"

	"leadmarket_backend/internal/adapters/storage"
	"leadmarket_backend/internal/quotes/repository"
	"leadmarket_backend/internal/quotes/service"
	"leadmarket_backend/internal/quotes/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for quotes
type Handler struct {
	svc         *service.Service
	attachments *storage.AttachmentService
	val         *validator.Validator
}

// New creates a new quotes handler. attachments may be nil when the object
// store is not configured.
func New(svc *service.Service, attachments *storage.AttachmentService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, attachments: attachments, val: val}
}

// RegisterLeadRoutes mounts the lead-scoped quote endpoints under /leads.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/quotes", h.Submit)
	rg.GET("/:id/quotes", h.ListForLead)
	rg.POST("/:id/quotes/attachments/presign", h.PresignUpload)
}

// RegisterQuoteRoutes mounts the quote endpoints under /quotes.
func (h *Handler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/decline", h.Decline)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/attachments/download", h.PresignDownload)
}

func (h *Handler) Submit(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	leadID, ok := parseParamID(c, "invalid lead id")
	if !ok {
		return
	}

	var payload transport.QuotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(payload); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	quote, err := h.svc.Submit(c.Request.Context(), id.UserID(), leadID, payload)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToQuoteResponse(quote, nil))
}

func (h *Handler) Update(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	quoteID, ok := parseParamID(c, "invalid quote id")
	if !ok {
		return
	}

	var payload transport.QuotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(payload); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	quote, err := h.svc.Update(c.Request.Context(), id.UserID(), quoteID, payload)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(quote, nil))
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	quoteID, ok := parseParamID(c, "invalid quote id")
	if !ok {
		return
	}

	quote, items, err := h.svc.Get(c.Request.Context(), identity.UserID(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(quote, items))
}

func (h *Handler) Accept(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleHomeowner)
	if id == nil {
		return
	}

	quoteID, ok := parseParamID(c, "invalid quote id")
	if !ok {
		return
	}

	result, err := h.svc.Accept(c.Request.Context(), id.UserID(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"quote":            transport.ToQuoteResponse(&result.Quote, nil),
		"declinedSiblings": len(result.DeclinedSiblings),
	})
}

func (h *Handler) Decline(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleHomeowner)
	if id == nil {
		return
	}

	quoteID, ok := parseParamID(c, "invalid quote id")
	if !ok {
		return
	}

	var req transport.DeclineRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	quote, err := h.svc.Decline(c.Request.Context(), id.UserID(), quoteID, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToQuoteResponse(quote, nil))
}

func (h *Handler) Delete(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}

	quoteID, ok := parseParamID(c, "invalid quote id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id.UserID(), quoteID); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListForLead(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleHomeowner)
	if id == nil {
		return
	}

	leadID, ok := parseParamID(c, "invalid lead id")
	if !ok {
		return
	}

	var q transport.ListQuotesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	quotes, err := h.svc.ListForLead(c.Request.Context(), id.UserID(), leadID, repository.SortOrder(q.Sort))
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.QuoteResponse, 0, len(quotes))
	for i := range quotes {
		items = append(items, transport.ToQuoteResponse(&quotes[i], nil))
	}
	httpkit.OK(c, gin.H{"items": items})
}

type presignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

func (h *Handler) PresignUpload(c *gin.Context) {
	id := httpkit.RequireRole(c, httpkit.RoleProfessional)
	if id == nil {
		return
	}
	if h.attachments == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "attachments are not configured", nil)
		return
	}

	leadID, ok := parseParamID(c, "invalid lead id")
	if !ok {
		return
	}

	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, err.Error())
		return
	}

	url, err := h.attachments.PresignUpload(c.Request.Context(), leadID, id.UserID(), req.FileName, req.ContentType, req.SizeBytes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, url)
}

func (h *Handler) PresignDownload(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if h.attachments == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "attachments are not configured", nil)
		return
	}

	quoteID, ok := parseParamID(c, "invalid quote id")
	if !ok {
		return
	}

	fileKey := c.Query("key")
	if fileKey == "" {
		httpkit.Error(c, 400, "missing attachment key", nil)
		return
	}

	// Access control plus key membership check: the key must belong to a
	// quote the caller can see.
	quote, _, err := h.svc.Get(c.Request.Context(), identity.UserID(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}
	owned := false
	for _, key := range quote.AttachmentKeys {
		if key == fileKey {
			owned = true
			break
		}
	}
	if !owned {
		httpkit.Error(c, http.StatusNotFound, "attachment not found on this quote", nil)
		return
	}

	url, err := h.attachments.PresignDownload(c.Request.Context(), fileKey)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, url)
}

func parseParamID(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}
