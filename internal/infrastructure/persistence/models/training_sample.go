package models

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/leadscore/backend/internal/domain/scoring"
	"go.uber.org/zap"
)

// TrainingSampleModel is the persistence model for a harvested training
// sample. DecisionID is unique so re-harvesting the same decision is a
// no-op.
type TrainingSampleModel struct {
	BaseModel
	DecisionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ToolName     string    `gorm:"type:varchar(100);not null;index"`
	RuleVersion  string    `gorm:"type:varchar(50);not null"`
	InputJSON    string    `gorm:"column:input_features;type:jsonb;not null"`
	ExpectedJSON string    `gorm:"column:expected_output;type:jsonb;not null"`
	ActualJSON   string    `gorm:"column:actual_output;type:jsonb;not null"`
	QualityScore float64   `gorm:"not null"`
	SampleType   string    `gorm:"type:varchar(50);not null"`
}

// TableName returns the table name for GORM
func (TrainingSampleModel) TableName() string {
	return "training_samples"
}

// ToDomain converts the persistence model to a domain TrainingSample.
func (m *TrainingSampleModel) ToDomain() *scoring.TrainingSample {
	s := &scoring.TrainingSample{
		BaseEntity:   m.BaseModel.ToDomain(),
		DecisionID:   m.DecisionID,
		ToolName:     m.ToolName,
		RuleVersion:  m.RuleVersion,
		QualityScore: m.QualityScore,
		SampleType:   m.SampleType,
	}
	if m.InputJSON != "" {
		if err := json.Unmarshal([]byte(m.InputJSON), &s.InputFeatures); err != nil {
			modelLogger.Warn("failed to parse training sample JSON",
				zap.String("column", "input_features"),
				zap.String("sample_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.ExpectedJSON != "" {
		if err := json.Unmarshal([]byte(m.ExpectedJSON), &s.ExpectedOutput); err != nil {
			modelLogger.Warn("failed to parse training sample JSON",
				zap.String("column", "expected_output"),
				zap.String("sample_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.ActualJSON != "" {
		if err := json.Unmarshal([]byte(m.ActualJSON), &s.ActualOutput); err != nil {
			modelLogger.Warn("failed to parse training sample JSON",
				zap.String("column", "actual_output"),
				zap.String("sample_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return s
}

// FromDomain populates the persistence model from a domain TrainingSample.
func (m *TrainingSampleModel) FromDomain(s *scoring.TrainingSample) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.DecisionID = s.DecisionID
	m.ToolName = s.ToolName
	m.RuleVersion = s.RuleVersion
	m.QualityScore = s.QualityScore
	m.SampleType = s.SampleType

	m.InputJSON = marshalOrEmpty(s.InputFeatures)
	m.ExpectedJSON = marshalOrEmpty(s.ExpectedOutput)
	if jsonBytes, err := json.Marshal(s.ActualOutput); err == nil {
		m.ActualJSON = string(jsonBytes)
	} else {
		m.ActualJSON = "{}"
	}
}

func marshalOrEmpty(v map[string]any) string {
	if v == nil {
		return "{}"
	}
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}
