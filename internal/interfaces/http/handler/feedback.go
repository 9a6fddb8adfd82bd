package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appscoring "github.com/leadscore/backend/internal/application/scoring"
	"github.com/leadscore/backend/internal/interfaces/http/dto"
	"github.com/leadscore/backend/internal/interfaces/http/middleware"
)

// FeedbackHandler serves outcome report endpoints
type FeedbackHandler struct {
	BaseHandler
	service *appscoring.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(service *appscoring.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// RegisterRoutes registers feedback routes
func (h *FeedbackHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/feedback", h.Submit)
}

// Submit records an outcome report for a past decision.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	decisionID, err := uuid.Parse(req.DecisionID)
	if err != nil {
		h.BadRequest(c, "decision_id must be a valid UUID")
		return
	}

	feedback, err := h.service.SubmitFeedback(c.Request.Context(), decisionID,
		*req.OutcomePositive, req.OutcomeType, req.OutcomeValue, req.Notes)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, dto.FeedbackResponse{
		FeedbackID: feedback.ID.String(),
		DecisionID: feedback.DecisionID.String(),
	})
}
