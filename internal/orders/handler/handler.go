package handler

import (
	"labportal_backend/internal/orders/service"
	"labportal_backend/internal/orders/transport"
	"labportal_backend/platform/httpkit"
	"labportal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOrderID   = "invalid order id"
)

// Handler handles HTTP requests for test orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the order routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/results", h.ListResults)
	rg.PATCH("/:id/ai-review-mode", h.SetAiReviewMode)
}

func (h *Handler) GetByID(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, order)
}

func (h *Handler) ListResults(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	results, err := h.svc.ListResults(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"results": results})
}

func (h *Handler) SetAiReviewMode(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	userID, ok := httpkit.GetUserID(c)
	if !ok {
		return
	}

	var req transport.SetAiReviewModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, msgValidationFailed, err.Error())
		return
	}

	order, err := h.svc.SetAiReviewMode(c.Request.Context(), orderID, *req.Enabled, userID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, order)
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, msgInvalidOrderID, nil)
		return uuid.Nil, false
	}
	return orderID, true
}
