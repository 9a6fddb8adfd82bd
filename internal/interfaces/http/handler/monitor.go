package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/leadscore/backend/internal/application/monitor"
	"github.com/leadscore/backend/internal/interfaces/http/dto"
)

// MonitorHandler exposes the performance monitor trigger
type MonitorHandler struct {
	BaseHandler
	monitor *monitor.Monitor
}

// NewMonitorHandler creates a new MonitorHandler
func NewMonitorHandler(m *monitor.Monitor) *MonitorHandler {
	return &MonitorHandler{monitor: m}
}

// RegisterRoutes registers monitoring routes
func (h *MonitorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/monitoring/check-rule-performance", h.CheckRulePerformance)
}

// CheckRulePerformance runs the threshold checks for a tool on demand.
// A check already in progress is reported as a conflict, not queued.
func (h *MonitorHandler) CheckRulePerformance(c *gin.Context) {
	tool := c.Query("tool")
	if tool == "" {
		h.BadRequest(c, "tool query parameter is required")
		return
	}

	alerts, err := h.monitor.CheckRulePerformance(c.Request.Context(), tool)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := dto.CheckPerformanceResponse{
		ToolName: tool,
		Alerts:   make([]dto.AlertResponse, 0, len(alerts)),
	}
	for _, alert := range alerts {
		resp.Alerts = append(resp.Alerts, dto.AlertResponseFromDomain(alert))
	}
	h.Success(c, resp)
}
