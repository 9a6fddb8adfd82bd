package scoring

import (
	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/shared"
)

// SampleTypeFailedDecision marks samples harvested from decisions
// judged to have failed.
const SampleTypeFailedDecision = "failed_decision"

// TrainingSample is a derived artifact harvested from a failing
// decision by the performance monitor, for future rule and model
// improvement. Only the monitor creates these.
type TrainingSample struct {
	shared.BaseEntity
	DecisionID     uuid.UUID
	ToolName       string
	RuleVersion    string
	InputFeatures  map[string]any
	ExpectedOutput map[string]any
	ActualOutput   Output
	QualityScore   float64
	SampleType     string
}

// NewTrainingSampleFromDecision materializes a sample from a failing
// decision. InputFeatures carries the decision's input record verbatim
// so retraining sees exactly what the scorer saw. The expected output is
// inferred from feedback when present: a negative outcome on a positive
// classification (and vice versa) flips the expected label.
func NewTrainingSampleFromDecision(d *Decision, fb *Feedback, qualityScore float64) *TrainingSample {
	sample := &TrainingSample{
		BaseEntity:    shared.NewBaseEntity(),
		DecisionID:    d.ID,
		ToolName:      d.ToolName,
		RuleVersion:   d.RuleVersion,
		InputFeatures: d.Input,
		ActualOutput:  d.Output,
		QualityScore:  qualityScore,
		SampleType:    SampleTypeFailedDecision,
	}

	expected := map[string]any{}
	if fb != nil {
		expected["outcome_positive"] = fb.OutcomePositive
		expected["outcome_type"] = fb.OutcomeType
		if fb.OutcomeValue != nil {
			expected["outcome_value"] = *fb.OutcomeValue
		}
	}
	sample.ExpectedOutput = expected
	return sample
}
