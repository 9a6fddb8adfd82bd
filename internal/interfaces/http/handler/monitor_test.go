package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadscore/backend/internal/application/monitor"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/interfaces/http/dto"
)

type memorySampleRepo struct{}

func (memorySampleRepo) SaveBatch(_ context.Context, samples []*scoring.TrainingSample) (int64, error) {
	return int64(len(samples)), nil
}

func (memorySampleRepo) ListByTool(context.Context, string, int) ([]*scoring.TrainingSample, error) {
	return nil, nil
}

type memoryAlertRepo struct {
	saved []*scoring.Alert
}

func (r *memoryAlertRepo) Save(_ context.Context, alert *scoring.Alert) error {
	r.saved = append(r.saved, alert)
	return nil
}

func (r *memoryAlertRepo) ListRecent(context.Context, string, int) ([]*scoring.Alert, error) {
	return r.saved, nil
}

func newMonitorRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := monitor.NewMonitor(
		newMemoryDecisionRepo(),
		&memoryFeedbackRepo{},
		memorySampleRepo{},
		&memoryAlertRepo{},
		nil,
		testResolver,
		monitor.Thresholds{
			SuccessRate:        0.85,
			MinFeedbackSamples: 100,
			AvgConfidence:      0.75,
			MinDecisionSamples: 200,
			PendingFeedback:    100,
			MismatchRatio:      0.10,
			MinShadowSamples:   50,
			Window:             7 * 24 * time.Hour,
			TrainingBatchSize:  50,
		},
		nil,
		zap.NewNop(),
	)

	engine := gin.New()
	rg := engine.Group("/api/v1")
	NewMonitorHandler(m).RegisterRoutes(rg)
	return engine
}

func TestMonitorHandler_CheckRulePerformance(t *testing.T) {
	engine := newMonitorRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/check-rule-performance?tool=company_fit", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "company_fit", data["tool_name"])
	alerts := data["alerts"].([]interface{})
	assert.Empty(t, alerts)
}

func TestMonitorHandler_CheckRulePerformance_RequiresTool(t *testing.T) {
	engine := newMonitorRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/check-rule-performance", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
