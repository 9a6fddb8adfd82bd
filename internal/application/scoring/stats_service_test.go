package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadscore/backend/internal/domain/scoring"
)

func TestDeclareWinner(t *testing.T) {
	stats := func(version string, feedback, positive int64) scoring.VersionStats {
		return scoring.VersionStats{Version: version, FeedbackCount: feedback, PositiveCount: positive}
	}

	tests := []struct {
		name    string
		control scoring.VersionStats
		test    scoring.VersionStats
		want    string
	}{
		{
			name:    "test wins decisively",
			control: stats("v1", 200, 120), // 0.60
			test:    stats("v2", 200, 140), // 0.70
			want:    "v2",
		},
		{
			name:    "control wins decisively",
			control: stats("v1", 200, 160), // 0.80
			test:    stats("v2", 200, 130), // 0.65
			want:    "v1",
		},
		{
			name:    "gap within delta",
			control: stats("v1", 200, 120), // 0.60
			test:    stats("v2", 200, 126), // 0.63
			want:    "inconclusive",
		},
		{
			name:    "control arm underpowered",
			control: stats("v1", 10, 2),
			test:    stats("v2", 200, 180),
			want:    "inconclusive",
		},
		{
			name:    "test arm underpowered",
			control: stats("v1", 200, 180),
			test:    stats("v2", 0, 0),
			want:    "inconclusive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, declareWinner(tc.control, tc.test, 100, 0.05))
		})
	}
}

func TestDeclareWinner_ConfiguredDelta(t *testing.T) {
	control := scoring.VersionStats{Version: "v1", FeedbackCount: 200, PositiveCount: 120} // 0.60
	test := scoring.VersionStats{Version: "v2", FeedbackCount: 200, PositiveCount: 136}    // 0.68

	// An 8-point gap wins under the default delta but not a stricter one.
	assert.Equal(t, "v2", declareWinner(control, test, 100, 0.05))
	assert.Equal(t, "inconclusive", declareWinner(control, test, 100, 0.10))
}
