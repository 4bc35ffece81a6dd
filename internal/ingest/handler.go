package ingest

import (
	"labportal_backend/platform/httpkit"
	"labportal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IngestRequest triggers one ingestion unit of work for an order.
type IngestRequest struct {
	TestType string `json:"testType" validate:"required,max=100"`
	Async    bool   `json:"async"`
}

// Handler handles HTTP requests for result ingestion.
type Handler struct {
	svc       *Service
	scheduler IngestScheduler
	val       *validator.Validator
}

func NewHandler(svc *Service, scheduler IngestScheduler, val *validator.Validator) *Handler {
	return &Handler{svc: svc, scheduler: scheduler, val: val}
}

// RegisterRoutes registers the ingestion routes on the orders group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/ingest", h.Ingest)
}

func (h *Handler) Ingest(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, 400, "invalid order id", nil)
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, 400, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, 400, "validation failed", err.Error())
		return
	}

	if req.Async && h.scheduler != nil {
		if err := h.scheduler.EnqueueResultsIngest(c.Request.Context(), orderID, req.TestType, h.svc.sourceSystem); err != nil {
			httpkit.HandleError(c, err)
			return
		}
		httpkit.JSON(c, 202, gin.H{"queued": true, "testOrderId": orderID})
		return
	}

	outcome, err := h.svc.Ingest(c.Request.Context(), orderID, req.TestType)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, outcome)
}
