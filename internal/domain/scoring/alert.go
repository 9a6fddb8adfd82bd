package scoring

import "github.com/leadscore/backend/internal/domain/shared"

// AlertSeverity grades how urgent an alert is.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert check names, one per monitor threshold check.
const (
	CheckSuccessRate     = "success_rate"
	CheckAvgConfidence   = "avg_confidence"
	CheckFeedbackBacklog = "feedback_backlog"
	CheckShadowMismatch  = "shadow_mismatch"
)

// Alert records one threshold violation found by the performance
// monitor for a (tool, version) pair.
type Alert struct {
	shared.BaseEntity
	ToolName    string
	RuleVersion string
	Check       string
	Severity    AlertSeverity
	Message     string
	Value       float64
	Threshold   float64
	SampleSize  int64
}

// NewAlert creates an alert record.
func NewAlert(tool, version, check string, severity AlertSeverity, message string, value, threshold float64, samples int64) *Alert {
	return &Alert{
		BaseEntity:  shared.NewBaseEntity(),
		ToolName:    tool,
		RuleVersion: version,
		Check:       check,
		Severity:    severity,
		Message:     message,
		Value:       value,
		Threshold:   threshold,
		SampleSize:  samples,
	}
}
