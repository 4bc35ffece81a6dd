package aireview

import (
	"labportal_backend/internal/orders/transport"
	"labportal_backend/platform/httpkit"
	"labportal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConfirmRequest optionally narrows confirmation to specific results.
// An empty list confirms every reviewed-and-unconfirmed result.
type ConfirmRequest struct {
	ResultIDs []string `json:"resultIds" validate:"omitempty,dive,uuid"`
}

// Handler handles HTTP requests for AI review and confirmation.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the review routes on the orders group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/ai-review", h.TriggerReview)
	rg.POST("/:id/ai-review/confirm", h.Confirm)
}

func (h *Handler) TriggerReview(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid order id", nil)
		return
	}

	reviewed, err := h.svc.TriggerReview(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"order":           transport.ToOrderResponse(reviewed.Order),
		"aiSummary":       reviewed.Summary,
		"predictedStatus": reviewed.PredictedStatus,
	})
}

func (h *Handler) Confirm(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid order id", nil)
		return
	}

	userID, ok := httpkit.GetUserID(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, 400, "invalid request", nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, 400, "validation failed", err.Error())
			return
		}
	}

	resultIDs := make([]uuid.UUID, 0, len(req.ResultIDs))
	for _, raw := range req.ResultIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, 400, "invalid result id", raw)
			return
		}
		resultIDs = append(resultIDs, id)
	}

	outcome, err := h.svc.Confirm(c.Request.Context(), orderID, userID, resultIDs)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"order":          transport.ToOrderResponse(outcome.Order),
		"confirmedCount": outcome.ConfirmedCount,
		"completed":      outcome.Completed,
	})
}
