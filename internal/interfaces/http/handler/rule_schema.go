package handler

import (
	"github.com/gin-gonic/gin"
	apprules "github.com/leadscore/backend/internal/application/rules"
	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/interfaces/http/dto"
)

// RuleSchemaHandler serves schema publishing and inspection endpoints
type RuleSchemaHandler struct {
	BaseHandler
	service *apprules.SchemaService
}

// NewRuleSchemaHandler creates a new RuleSchemaHandler
func NewRuleSchemaHandler(service *apprules.SchemaService) *RuleSchemaHandler {
	return &RuleSchemaHandler{service: service}
}

// RegisterRoutes registers rule schema routes
func (h *RuleSchemaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	schemas := rg.Group("/rule-schemas")
	{
		schemas.POST("", h.Publish)
		schemas.GET("", h.List)
		schemas.GET("/:name", h.ListVersions)
		schemas.GET("/:name/:version", h.Get)
	}
}

// Publish validates and stores a new schema version.
func (h *RuleSchemaHandler) Publish(c *gin.Context) {
	var schema rules.Schema
	if err := c.ShouldBindJSON(&schema); err != nil {
		h.Error(c, 400, dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	published, err := h.service.Publish(c.Request.Context(), &schema)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, published)
}

// List returns every published schema.
func (h *RuleSchemaHandler) List(c *gin.Context) {
	schemas, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, schemas)
}

// ListVersions returns all versions of one schema name.
func (h *RuleSchemaHandler) ListVersions(c *gin.Context) {
	schemas, err := h.service.ListVersions(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if len(schemas) == 0 {
		h.NotFound(c, "no schema published under this name")
		return
	}
	h.Success(c, schemas)
}

// Get returns one schema version.
func (h *RuleSchemaHandler) Get(c *gin.Context) {
	schema, err := h.service.Get(c.Request.Context(), c.Param("name"), c.Param("version"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, schema)
}
