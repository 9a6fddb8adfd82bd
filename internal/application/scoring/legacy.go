package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/domain/shared"
)

// LegacyScorer is the authoritative scoring path for a tool. The rule
// path shadows it; its output is always what callers receive.
type LegacyScorer interface {
	Name() string
	Score(ctx context.Context, input map[string]any) (scoring.Output, error)
}

// LegacyRegistry maps tool names to their legacy scorers.
type LegacyRegistry struct {
	mu      sync.RWMutex
	scorers map[string]LegacyScorer
}

func NewLegacyRegistry() *LegacyRegistry {
	return &LegacyRegistry{scorers: make(map[string]LegacyScorer)}
}

// Register adds a scorer under its tool name, replacing any existing one.
func (r *LegacyRegistry) Register(s LegacyScorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[s.Name()] = s
}

// Get returns the scorer for a tool, or ErrNotFound.
func (r *LegacyRegistry) Get(tool string) (LegacyScorer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scorers[tool]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("no legacy scorer registered for tool %q", tool))
	}
	return s, nil
}

// Tools returns the registered tool names, sorted.
func (r *LegacyRegistry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scorers))
	for name := range r.scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompanyFitScorer scores how well a company profile matches the target
// customer base. Ported from the heuristic scorer the rule engine is
// meant to replace.
type CompanyFitScorer struct {
	TargetIndustries []string
}

func NewCompanyFitScorer() *CompanyFitScorer {
	return &CompanyFitScorer{
		TargetIndustries: []string{"logistics", "retail", "manufacturing", "construction", "healthcare"},
	}
}

func (s *CompanyFitScorer) Name() string { return "company_fit" }

func (s *CompanyFitScorer) Score(_ context.Context, input map[string]any) (scoring.Output, error) {
	score := 30.0
	var factors []string

	industry := strings.ToLower(stringField(input, "industry"))
	for _, target := range s.TargetIndustries {
		if industry == target {
			score += 25
			factors = append(factors, "target_industry")
			break
		}
	}

	switch strings.ToLower(stringField(input, "size_bucket")) {
	case "51-200", "201-500":
		score += 20
		factors = append(factors, "mid_market_size")
	case "11-50":
		score += 10
		factors = append(factors, "small_team")
	case "500+":
		score += 5
	}

	if boolField(input, "uae_presence") {
		score += 15
		factors = append(factors, "uae_presence")
	}

	if n, ok := floatField(input, "employee_count"); ok && n >= 50 && n <= 500 {
		score += 10
		factors = append(factors, "headcount_sweet_spot")
	}

	score = math.Min(score, 100)

	classification := "cold"
	switch {
	case score >= 75:
		classification = "hot"
	case score >= 50:
		classification = "warm"
	}

	confidence := 0.85
	for _, f := range []string{"industry", "size_bucket", "uae_presence"} {
		if _, ok := input[f]; !ok {
			confidence -= 0.1
		}
	}
	confidence = math.Max(confidence, 0)

	return scoring.Output{
		Score:          round2(score),
		Classification: classification,
		Confidence:     round2(confidence),
		Reasoning:      fmt.Sprintf("company fit score %.2f (%s)", score, classification),
		KeyFactors:     factors,
	}, nil
}

// EngagementScorer scores outreach engagement from email activity.
type EngagementScorer struct{}

func NewEngagementScorer() *EngagementScorer { return &EngagementScorer{} }

func (s *EngagementScorer) Name() string { return "engagement" }

func (s *EngagementScorer) Score(_ context.Context, input map[string]any) (scoring.Output, error) {
	sent, _ := floatField(input, "emails_sent")
	if sent <= 0 {
		return scoring.Output{
			Score:          0,
			Classification: "unengaged",
			Confidence:     0.5,
			Reasoning:      "no outreach recorded",
		}, nil
	}

	openRate, _ := floatField(input, "open_rate")
	replyRate, _ := floatField(input, "reply_rate")

	score := openRate*40 + replyRate*60
	var factors []string
	if openRate >= 0.5 {
		factors = append(factors, "high_open_rate")
	}
	if replyRate >= 0.1 {
		factors = append(factors, "replied")
	}

	seniority := strings.ToLower(stringField(input, "seniority_level"))
	if seniority == "director" || seniority == "vp" || seniority == "c-level" {
		score *= 1.2
		factors = append(factors, "senior_contact")
	}
	score = math.Min(score, 100)

	classification := "unengaged"
	switch {
	case score >= 60:
		classification = "engaged"
	case score >= 25:
		classification = "curious"
	}

	// Few sends make the rates unreliable.
	confidence := 0.9
	if sent < 3 {
		confidence = 0.6
	}

	return scoring.Output{
		Score:          round2(score),
		Classification: classification,
		Confidence:     confidence,
		Reasoning:      fmt.Sprintf("engagement score %.2f over %.0f emails", score, sent),
		KeyFactors:     factors,
	}, nil
}

func stringField(input map[string]any, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolField(input map[string]any, key string) bool {
	if v, ok := input[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			return strings.EqualFold(b, "true") || strings.EqualFold(b, "yes")
		}
	}
	return false
}

func floatField(input map[string]any, key string) (float64, bool) {
	v, ok := input[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
