package models

import (
	"encoding/json"

	"github.com/leadscore/backend/internal/domain/scoring"
	"go.uber.org/zap"
)

var modelLogger = zap.L().Named("scoring.models")

// DecisionModel is the persistence model for a scoring decision.
// Input, output and the shadow record are stored as JSONB so the
// schema survives rule changes without migrations.
type DecisionModel struct {
	BaseModel
	ToolName        string  `gorm:"type:varchar(100);not null;index:idx_decisions_tool_created"`
	EntityID        string  `gorm:"type:varchar(200);not null;index"`
	RuleVersion     string  `gorm:"type:varchar(50);not null;index"`
	ExperimentGroup string  `gorm:"type:varchar(20);not null"`
	InputJSON       string  `gorm:"column:input_data;type:jsonb;not null"`
	OutputJSON      string  `gorm:"column:output_data;type:jsonb;not null"`
	ShadowJSON      *string `gorm:"column:shadow_data;type:jsonb"`
	ShadowMatch     *bool   `gorm:"column:shadow_match;index"`
	LatencyMS       int64   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DecisionModel) TableName() string {
	return "decisions"
}

// ToDomain converts the persistence model to a domain Decision.
func (m *DecisionModel) ToDomain() *scoring.Decision {
	d := &scoring.Decision{
		BaseEntity:      m.BaseModel.ToDomain(),
		ToolName:        m.ToolName,
		EntityID:        m.EntityID,
		RuleVersion:     m.RuleVersion,
		ExperimentGroup: m.ExperimentGroup,
		LatencyMS:       m.LatencyMS,
	}

	if m.InputJSON != "" {
		if err := json.Unmarshal([]byte(m.InputJSON), &d.Input); err != nil {
			modelLogger.Warn("failed to parse input_data JSON",
				zap.String("decision_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.OutputJSON != "" {
		if err := json.Unmarshal([]byte(m.OutputJSON), &d.Output); err != nil {
			modelLogger.Warn("failed to parse output_data JSON",
				zap.String("decision_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.ShadowJSON != nil && *m.ShadowJSON != "" {
		var shadow scoring.ShadowRecord
		if err := json.Unmarshal([]byte(*m.ShadowJSON), &shadow); err != nil {
			modelLogger.Warn("failed to parse shadow_data JSON",
				zap.String("decision_id", m.ID.String()),
				zap.Error(err))
		} else {
			d.Shadow = &shadow
		}
	}
	return d
}

// FromDomain populates the persistence model from a domain Decision.
func (m *DecisionModel) FromDomain(d *scoring.Decision) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.ToolName = d.ToolName
	m.EntityID = d.EntityID
	m.RuleVersion = d.RuleVersion
	m.ExperimentGroup = d.ExperimentGroup
	m.LatencyMS = d.LatencyMS

	if jsonBytes, err := json.Marshal(d.Input); err == nil {
		m.InputJSON = string(jsonBytes)
	} else {
		m.InputJSON = "{}"
	}
	if jsonBytes, err := json.Marshal(d.Output); err == nil {
		m.OutputJSON = string(jsonBytes)
	} else {
		m.OutputJSON = "{}"
	}

	m.ShadowJSON = nil
	m.ShadowMatch = nil
	if d.Shadow != nil {
		if jsonBytes, err := json.Marshal(d.Shadow); err == nil {
			s := string(jsonBytes)
			m.ShadowJSON = &s
		}
		if d.Shadow.Comparison != nil {
			match := d.Shadow.Comparison.Match
			m.ShadowMatch = &match
		}
	}
}
