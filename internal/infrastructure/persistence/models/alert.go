package models

import (
	"github.com/leadscore/backend/internal/domain/scoring"
)

// AlertModel is the persistence model for a monitor alert.
type AlertModel struct {
	BaseModel
	ToolName    string  `gorm:"type:varchar(100);not null;index"`
	RuleVersion string  `gorm:"type:varchar(50)"`
	Check       string  `gorm:"type:varchar(50);not null"`
	Severity    string  `gorm:"type:varchar(20);not null;index"`
	Message     string  `gorm:"type:text;not null"`
	Value       float64 `gorm:"not null"`
	Threshold   float64 `gorm:"not null"`
	SampleSize  int64   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AlertModel) TableName() string {
	return "rule_alerts"
}

// ToDomain converts the persistence model to a domain Alert.
func (m *AlertModel) ToDomain() *scoring.Alert {
	return &scoring.Alert{
		BaseEntity:  m.BaseModel.ToDomain(),
		ToolName:    m.ToolName,
		RuleVersion: m.RuleVersion,
		Check:       m.Check,
		Severity:    scoring.AlertSeverity(m.Severity),
		Message:     m.Message,
		Value:       m.Value,
		Threshold:   m.Threshold,
		SampleSize:  m.SampleSize,
	}
}

// FromDomain populates the persistence model from a domain Alert.
func (m *AlertModel) FromDomain(a *scoring.Alert) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.ToolName = a.ToolName
	m.RuleVersion = a.RuleVersion
	m.Check = a.Check
	m.Severity = string(a.Severity)
	m.Message = a.Message
	m.Value = a.Value
	m.Threshold = a.Threshold
	m.SampleSize = a.SampleSize
}
