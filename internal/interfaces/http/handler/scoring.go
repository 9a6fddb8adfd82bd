package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	appscoring "github.com/leadscore/backend/internal/application/scoring"
	"github.com/leadscore/backend/internal/interfaces/http/dto"
	"github.com/leadscore/backend/internal/interfaces/http/middleware"
)

// defaultStatsDays bounds the aggregate endpoints when no trailing
// window is given on the request.
const defaultStatsDays = 7

// ScoringHandler serves evaluation and aggregate stats endpoints
type ScoringHandler struct {
	BaseHandler
	executor *appscoring.ShadowExecutor
	stats    *appscoring.StatsService
}

// NewScoringHandler creates a new ScoringHandler
func NewScoringHandler(executor *appscoring.ShadowExecutor, stats *appscoring.StatsService) *ScoringHandler {
	return &ScoringHandler{
		executor: executor,
		stats:    stats,
	}
}

// RegisterRoutes registers scoring routes
func (h *ScoringHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/tools/:toolName/evaluate", h.Evaluate)
	rg.GET("/shadow-mode-stats", h.ShadowModeStats)
	rg.GET("/rule-comparison", h.RuleComparison)
}

// Evaluate scores one entity with the named tool. The response carries
// only the authoritative output; the shadow record is logged
// asynchronously.
func (h *ScoringHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	output, err := h.executor.Evaluate(c.Request.Context(), c.Param("toolName"), req.EntityID, req.InputData)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.EvaluateResponse{OutputData: output})
}

// ShadowModeStats reports rule vs legacy agreement for a tool.
func (h *ScoringHandler) ShadowModeStats(c *gin.Context) {
	tool := c.Query("tool")
	if tool == "" {
		h.BadRequest(c, "tool query parameter is required")
		return
	}
	days, ok := h.parseDays(c)
	if !ok {
		return
	}

	stats, err := h.stats.ShadowStats(c.Request.Context(), tool, days)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, dto.ShadowStatsResponse{
		ToolName:  tool,
		Days:      days,
		Stats:     stats,
		MatchRate: stats.MatchRate(),
	})
}

// RuleComparison compares two rule versions of a tool. The control and
// test arms default to the configured experiment when not given.
func (h *ScoringHandler) RuleComparison(c *gin.Context) {
	tool := c.Query("tool")
	if tool == "" {
		h.BadRequest(c, "tool query parameter is required")
		return
	}
	days, ok := h.parseDays(c)
	if !ok {
		return
	}

	cmp, err := h.stats.CompareRuleVersions(c.Request.Context(), tool, c.Query("control"), c.Query("test"), days)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, cmp)
}

func (h *ScoringHandler) parseDays(c *gin.Context) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return defaultStatsDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		h.BadRequest(c, "days must be a positive integer")
		return 0, false
	}
	return days, true
}
