package models

import (
	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/scoring"
)

// FeedbackModel is the persistence model for an outcome report.
type FeedbackModel struct {
	BaseModel
	DecisionID      uuid.UUID `gorm:"type:uuid;not null;index"`
	OutcomePositive bool      `gorm:"not null"`
	OutcomeType     string    `gorm:"type:varchar(50);not null"`
	OutcomeValue    *float64
	Notes           string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (FeedbackModel) TableName() string {
	return "decision_feedback"
}

// ToDomain converts the persistence model to a domain Feedback.
func (m *FeedbackModel) ToDomain() *scoring.Feedback {
	return &scoring.Feedback{
		BaseEntity:      m.BaseModel.ToDomain(),
		DecisionID:      m.DecisionID,
		OutcomePositive: m.OutcomePositive,
		OutcomeType:     m.OutcomeType,
		OutcomeValue:    m.OutcomeValue,
		Notes:           m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Feedback.
func (m *FeedbackModel) FromDomain(f *scoring.Feedback) {
	m.FromDomainBaseEntity(f.BaseEntity)
	m.DecisionID = f.DecisionID
	m.OutcomePositive = f.OutcomePositive
	m.OutcomeType = f.OutcomeType
	m.OutcomeValue = f.OutcomeValue
	m.Notes = f.Notes
}
