package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyRegistry(t *testing.T) {
	registry := NewLegacyRegistry()
	registry.Register(NewEngagementScorer())
	registry.Register(NewCompanyFitScorer())

	s, err := registry.Get("company_fit")
	require.NoError(t, err)
	assert.Equal(t, "company_fit", s.Name())

	_, err = registry.Get("unknown")
	assert.Error(t, err)

	assert.Equal(t, []string{"company_fit", "engagement"}, registry.Tools())
}

func TestCompanyFitScorer(t *testing.T) {
	scorer := NewCompanyFitScorer()
	ctx := context.Background()

	tests := []struct {
		name      string
		input     map[string]any
		wantScore float64
		wantClass string
	}{
		{
			name: "ideal profile",
			input: map[string]any{
				"industry":       "Logistics",
				"size_bucket":    "51-200",
				"uae_presence":   true,
				"employee_count": 120.0,
			},
			wantScore: 100,
			wantClass: "hot",
		},
		{
			name: "partial match",
			input: map[string]any{
				"industry":    "retail",
				"size_bucket": "11-50",
			},
			wantScore: 65,
			wantClass: "warm",
		},
		{
			name:      "empty input",
			input:     map[string]any{},
			wantScore: 30,
			wantClass: "cold",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := scorer.Score(ctx, tc.input)
			require.NoError(t, err)
			assert.InDelta(t, tc.wantScore, out.Score, 0.001)
			assert.Equal(t, tc.wantClass, out.Classification)
		})
	}
}

func TestCompanyFitScorer_ConfidencePenalty(t *testing.T) {
	scorer := NewCompanyFitScorer()

	out, err := scorer.Score(context.Background(), map[string]any{"industry": "logistics"})
	require.NoError(t, err)
	// size_bucket and uae_presence are absent, 0.1 penalty each.
	assert.InDelta(t, 0.65, out.Confidence, 0.001)

	out, err = scorer.Score(context.Background(), map[string]any{
		"industry":     "logistics",
		"size_bucket":  "51-200",
		"uae_presence": false,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.85, out.Confidence, 0.001)
}

func TestEngagementScorer(t *testing.T) {
	scorer := NewEngagementScorer()
	ctx := context.Background()

	t.Run("no outreach", func(t *testing.T) {
		out, err := scorer.Score(ctx, map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, 0.0, out.Score)
		assert.Equal(t, "unengaged", out.Classification)
		assert.Equal(t, 0.5, out.Confidence)
	})

	t.Run("engaged senior contact", func(t *testing.T) {
		out, err := scorer.Score(ctx, map[string]any{
			"emails_sent":     10.0,
			"open_rate":       0.6,
			"reply_rate":      0.2,
			"seniority_level": "Director",
		})
		require.NoError(t, err)
		// (0.6*40 + 0.2*60) * 1.2 = 43.2
		assert.InDelta(t, 43.2, out.Score, 0.001)
		assert.Equal(t, "curious", out.Classification)
		assert.Equal(t, 0.9, out.Confidence)
		assert.Contains(t, out.KeyFactors, "senior_contact")
		assert.Contains(t, out.KeyFactors, "high_open_rate")
	})

	t.Run("few sends lower confidence", func(t *testing.T) {
		out, err := scorer.Score(ctx, map[string]any{
			"emails_sent": 2.0,
			"open_rate":   1.0,
			"reply_rate":  1.0,
		})
		require.NoError(t, err)
		assert.Equal(t, 0.6, out.Confidence)
		assert.Equal(t, "engaged", out.Classification)
	})

	t.Run("integer counts accepted", func(t *testing.T) {
		out, err := scorer.Score(ctx, map[string]any{
			"emails_sent": 5,
			"open_rate":   0.5,
			"reply_rate":  0.0,
		})
		require.NoError(t, err)
		assert.InDelta(t, 20, out.Score, 0.001)
	})
}
