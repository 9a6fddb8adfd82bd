package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apprules "github.com/leadscore/backend/internal/application/rules"
	"github.com/leadscore/backend/internal/domain/rules"
	"github.com/leadscore/backend/internal/interfaces/http/dto"
)

type memorySchemaRepo struct {
	mu      sync.Mutex
	schemas map[string]*rules.Schema
}

func newMemorySchemaRepo() *memorySchemaRepo {
	return &memorySchemaRepo{schemas: make(map[string]*rules.Schema)}
}

func (r *memorySchemaRepo) Create(_ context.Context, schema *rules.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.Name+":"+schema.Version] = schema
	return nil
}

func (r *memorySchemaRepo) FindByNameVersion(_ context.Context, name, version string) (*rules.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schemas[name+":"+version], nil
}

func (r *memorySchemaRepo) ListByName(_ context.Context, name string) ([]*rules.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*rules.Schema
	for _, s := range r.schemas {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memorySchemaRepo) ListAll(_ context.Context) ([]*rules.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*rules.Schema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	return out, nil
}

func newSchemaRouter(t *testing.T) (*gin.Engine, *memorySchemaRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemorySchemaRepo()
	service := apprules.NewSchemaService(repo, nil, zap.NewNop())

	engine := gin.New()
	rg := engine.Group("/api/v1")
	NewRuleSchemaHandler(service).RegisterRoutes(rg)
	return engine, repo
}

func publishBody() gin.H {
	return gin.H{
		"name":    "company_fit",
		"version": "v2",
		"type":    "additive_scoring",
		"scoring_factors": []gin.H{
			{
				"name": "target_industry",
				"when": gin.H{
					"logic": "all",
					"conditions": []gin.H{
						{"field": "industry", "operator": "equals", "values": []string{"logistics"}},
					},
				},
				"points": 40,
			},
		},
		"score_min": 0,
		"score_max": 100,
	}
}

func TestRuleSchemaHandler_Publish(t *testing.T) {
	engine, repo := newSchemaRouter(t)

	w := postJSON(engine, "/api/v1/rule-schemas", publishBody())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	stored, err := repo.FindByNameVersion(context.Background(), "company_fit", "v2")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, rules.RuleTypeAdditiveScoring, stored.Type)
}

func TestRuleSchemaHandler_Publish_Duplicate(t *testing.T) {
	engine, _ := newSchemaRouter(t)

	w := postJSON(engine, "/api/v1/rule-schemas", publishBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(engine, "/api/v1/rule-schemas", publishBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_EXISTS", resp.Error.Code)
}

func TestRuleSchemaHandler_Publish_Invalid(t *testing.T) {
	engine, _ := newSchemaRouter(t)

	body := publishBody()
	body["type"] = "neural_net"
	w := postJSON(engine, "/api/v1/rule-schemas", body)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SCHEMA_INVALID", resp.Error.Code)
}

func TestRuleSchemaHandler_Get(t *testing.T) {
	engine, _ := newSchemaRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(engine, "/api/v1/rule-schemas", publishBody()).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rule-schemas/company_fit/v2", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rule-schemas/company_fit/v9", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRuleSchemaHandler_ListVersions(t *testing.T) {
	engine, _ := newSchemaRouter(t)
	require.Equal(t, http.StatusCreated, postJSON(engine, "/api/v1/rule-schemas", publishBody()).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rule-schemas/company_fit", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rule-schemas/unknown", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
