package scoring

import (
	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/shared"
)

// Feedback is an out-of-band outcome report for a decision. Many
// feedback records may reference the same decision; all are retained
// and aggregated statistically.
type Feedback struct {
	shared.BaseEntity
	DecisionID      uuid.UUID
	OutcomePositive bool
	OutcomeType     string
	OutcomeValue    *float64
	Notes           string
}

// NewFeedback creates a feedback record for a decision.
func NewFeedback(decisionID uuid.UUID, positive bool, outcomeType string, value *float64, notes string) *Feedback {
	return &Feedback{
		BaseEntity:      shared.NewBaseEntity(),
		DecisionID:      decisionID,
		OutcomePositive: positive,
		OutcomeType:     outcomeType,
		OutcomeValue:    value,
		Notes:           notes,
	}
}
