package dto

import (
	"github.com/leadscore/backend/internal/domain/scoring"
)

// EvaluateRequest is the body for POST /tools/:toolName/evaluate
type EvaluateRequest struct {
	EntityID  string         `json:"entity_id"`
	InputData map[string]any `json:"input_data" binding:"required"`
}

// EvaluateResponse carries only the authoritative output. Shadow
// results are persisted but never exposed on this endpoint.
type EvaluateResponse struct {
	OutputData scoring.Output `json:"output_data"`
}

// FeedbackRequest is the body for POST /feedback
type FeedbackRequest struct {
	DecisionID      string   `json:"decision_id" binding:"required,uuid"`
	OutcomePositive *bool    `json:"outcome_positive" binding:"required"`
	OutcomeType     string   `json:"outcome_type" binding:"required,max=50"`
	OutcomeValue    *float64 `json:"outcome_value"`
	Notes           string   `json:"notes" binding:"max=2000"`
}

// FeedbackResponse confirms a recorded outcome report
type FeedbackResponse struct {
	FeedbackID string `json:"feedback_id"`
	DecisionID string `json:"decision_id"`
}

// ShadowStatsResponse is the body for GET /shadow-mode-stats
type ShadowStatsResponse struct {
	ToolName  string              `json:"tool_name"`
	Days      int                 `json:"days"`
	Stats     scoring.ShadowStats `json:"stats"`
	MatchRate float64             `json:"match_rate"`
}

// CheckPerformanceResponse is the body for POST /monitoring/check-rule-performance
type CheckPerformanceResponse struct {
	ToolName string          `json:"tool_name"`
	Alerts   []AlertResponse `json:"alerts"`
}

// AlertResponse is one alert in API responses
type AlertResponse struct {
	ID          string  `json:"id"`
	ToolName    string  `json:"tool_name"`
	RuleVersion string  `json:"rule_version,omitempty"`
	Check       string  `json:"check"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
	Value       float64 `json:"value"`
	Threshold   float64 `json:"threshold"`
	SampleSize  int64   `json:"sample_size"`
	CreatedAt   string  `json:"created_at"`
}

// AlertResponseFromDomain converts a domain alert to its API shape
func AlertResponseFromDomain(a *scoring.Alert) AlertResponse {
	return AlertResponse{
		ID:          a.ID.String(),
		ToolName:    a.ToolName,
		RuleVersion: a.RuleVersion,
		Check:       a.Check,
		Severity:    string(a.Severity),
		Message:     a.Message,
		Value:       a.Value,
		Threshold:   a.Threshold,
		SampleSize:  a.SampleSize,
		CreatedAt:   a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
