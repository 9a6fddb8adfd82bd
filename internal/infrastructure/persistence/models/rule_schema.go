package models

import (
	"encoding/json"

	"github.com/leadscore/backend/internal/domain/rules"
	"go.uber.org/zap"
)

// RuleSchemaModel is the persistence model for a published rule schema.
// The full definition is stored as JSONB; name, version and type are
// lifted into columns for lookups.
type RuleSchemaModel struct {
	BaseModel
	Name           string `gorm:"type:varchar(100);not null;uniqueIndex:idx_rule_schemas_name_version"`
	Version        string `gorm:"type:varchar(50);not null;uniqueIndex:idx_rule_schemas_name_version"`
	Type           string `gorm:"type:varchar(30);not null"`
	DefinitionJSON string `gorm:"column:definition;type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (RuleSchemaModel) TableName() string {
	return "rule_schemas"
}

// ToDomain converts the persistence model to a domain Schema.
func (m *RuleSchemaModel) ToDomain() *rules.Schema {
	var schema rules.Schema
	if err := json.Unmarshal([]byte(m.DefinitionJSON), &schema); err != nil {
		modelLogger.Warn("failed to parse rule schema definition JSON",
			zap.String("name", m.Name),
			zap.String("version", m.Version),
			zap.Error(err))
		return nil
	}
	// Columns are authoritative for identity.
	schema.Name = m.Name
	schema.Version = m.Version
	return &schema
}

// FromDomain populates the persistence model from a domain Schema.
// The caller assigns identity; schemas are value objects in the domain.
func (m *RuleSchemaModel) FromDomain(s *rules.Schema) error {
	jsonBytes, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.Name = s.Name
	m.Version = s.Version
	m.Type = string(s.Type)
	m.DefinitionJSON = string(jsonBytes)
	return nil
}
