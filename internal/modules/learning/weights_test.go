package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkosta/warroom/internal/domain"
)

func TestProposeWeightTiers(t *testing.T) {
	cases := []struct {
		name       string
		accuracy   float64
		gap        float64
		wantWeight float64
		wantReason string
	}{
		{"strong performer", 0.72, 0.035, 1.2, "strong_performer"},
		{"average performer", 0.65, 0.02, 1.0, "average_performer"},
		{"weak performer", 0.58, -0.021, 0.8, "weak_performer"},
		{"poor performer", 0.42, 0.05, 0.5, "poor_performer"},
		{"tier boundary at 0.70", 0.70, 0.0, 1.2, "strong_performer"},
		{"tier boundary at 0.60", 0.60, 0.0, 1.0, "average_performer"},
		{"tier boundary at 0.50", 0.50, 0.0, 0.8, "weak_performer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			weight, reason := ProposeWeight(domain.AgentPerformance{
				Accuracy:      tc.accuracy,
				AvgConfidence: tc.accuracy + tc.gap,
				ConfidenceGap: tc.gap,
			})
			assert.InDelta(t, tc.wantWeight, weight, 1e-9)
			assert.Equal(t, tc.wantReason, reason)
		})
	}
}

func TestProposeWeightOverconfidencePenalty(t *testing.T) {
	// Accuracy 0.72 puts the agent in the 1.2 tier, but a 0.25 gap
	// costs 0.25 - 0.15 = 0.10.
	weight, reason := ProposeWeight(domain.AgentPerformance{
		Accuracy:      0.72,
		AvgConfidence: 0.97,
		ConfidenceGap: 0.25,
	})
	assert.InDelta(t, 1.1, weight, 1e-9)
	assert.Equal(t, "strong_performer,overconfidence_penalty", reason)
}

func TestProposeWeightPenaltyIsCapped(t *testing.T) {
	// A huge gap caps at the -20% penalty.
	weight, _ := ProposeWeight(domain.AgentPerformance{
		Accuracy:      0.72,
		AvgConfidence: 1.0,
		ConfidenceGap: 0.60,
	})
	assert.InDelta(t, 1.0, weight, 1e-9)
}

func TestProposeWeightUnderconfidenceBonus(t *testing.T) {
	// Accuracy 0.65 (1.0 tier), confidence 0.45: gap -0.20 earns
	// a 0.05 bonus.
	weight, reason := ProposeWeight(domain.AgentPerformance{
		Accuracy:      0.65,
		AvgConfidence: 0.45,
		ConfidenceGap: -0.20,
	})
	assert.InDelta(t, 1.05, weight, 1e-9)
	assert.Equal(t, "average_performer,underconfidence_bonus", reason)
}

func TestProposeWeightClampedToBounds(t *testing.T) {
	// Poor performer with a massive overconfidence gap cannot sink
	// below the floor.
	weight, _ := ProposeWeight(domain.AgentPerformance{
		Accuracy:      0.30,
		AvgConfidence: 0.95,
		ConfidenceGap: 0.65,
	})
	assert.Equal(t, WeightFloor, weight)

	// Strong performer with a big underconfidence bonus cannot exceed
	// the ceiling.
	weight, _ = ProposeWeight(domain.AgentPerformance{
		Accuracy:      0.75,
		AvgConfidence: 0.40,
		ConfidenceGap: -0.35,
	})
	assert.Equal(t, WeightCeiling, weight)
}
