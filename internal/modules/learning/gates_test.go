package learning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkosta/warroom/internal/domain"
)

func outcomes(correct, wrong int, correctFirst bool) []bool {
	out := make([]bool, 0, correct+wrong)
	if correctFirst {
		for i := 0; i < correct; i++ {
			out = append(out, true)
		}
		for i := 0; i < wrong; i++ {
			out = append(out, false)
		}
		return out
	}
	for i := 0; i < wrong; i++ {
		out = append(out, false)
	}
	for i := 0; i < correct; i++ {
		out = append(out, true)
	}
	return out
}

func TestSignificanceGateDistinguishableFromChance(t *testing.T) {
	// 22 of 30 is well beyond coin-flipping.
	pass, p := SignificanceGate(22, 30)
	assert.True(t, pass)
	assert.Less(t, p, SignificanceLevel)
}

func TestSignificanceGateChanceLevelRejected(t *testing.T) {
	// 16 of 30 is a coin flip; p lands far above the threshold.
	pass, p := SignificanceGate(16, 30)
	assert.False(t, pass)
	assert.GreaterOrEqual(t, p, SignificanceLevel)
}

func TestSignificanceGateBelowMinSample(t *testing.T) {
	// A perfect record on too few votes proves nothing.
	pass, p := SignificanceGate(10, 10)
	assert.False(t, pass)
	assert.Equal(t, 1.0, p)
}

func TestWalkForwardGateRecentSkillHolds(t *testing.T) {
	// 30 outcomes: the wrong calls all sit in the training segment, so
	// the 9-outcome out-of-sample tail is perfect.
	pass, oos := WalkForwardGate(outcomes(21, 9, false))
	assert.True(t, pass)
	assert.InDelta(t, 1.0, oos, 1e-9)
}

func TestWalkForwardGateOverfitToOldData(t *testing.T) {
	// Same totals but the wrong calls are all recent: the tail is all
	// misses, classic overfit signature.
	pass, oos := WalkForwardGate(outcomes(21, 9, true))
	assert.False(t, pass)
	assert.Zero(t, oos)
}

func TestWalkForwardGateEmptyWindow(t *testing.T) {
	pass, _ := WalkForwardGate(nil)
	assert.False(t, pass)
}

func TestCrossAgentGateMargin(t *testing.T) {
	pass, delta := CrossAgentGate(0.55, 0.60)
	assert.True(t, pass)
	assert.InDelta(t, -0.05, delta, 1e-9)

	pass, delta = CrossAgentGate(0.40, 0.60)
	assert.False(t, pass, "trailing the panel by 20 points needs human review")
	assert.InDelta(t, -0.20, delta, 1e-9)
}

func TestRunGatesRejectsOnAnySingleFailure(t *testing.T) {
	// Accuracy at chance level: significance fails regardless of the
	// other two gates passing.
	perf := domain.AgentPerformance{
		Agent:         "trader",
		TotalVotes:    30,
		CorrectVotes:  16,
		Accuracy:      16.0 / 30.0,
		AvgConfidence: 0.55,
		Outcomes:      outcomes(16, 14, false),
	}

	result := RunGates(perf, 0.50, "2026-08-23")
	assert.False(t, result.SignificancePass)
	assert.True(t, result.CrossAgentPass)
	assert.False(t, result.Passed(), "one failed gate discards the update")
}

func TestRunGatesAllPass(t *testing.T) {
	perf := domain.AgentPerformance{
		Agent:         "trader",
		TotalVotes:    30,
		CorrectVotes:  24,
		Accuracy:      0.80,
		AvgConfidence: 0.82,
		Outcomes:      outcomes(24, 6, false),
	}

	result := RunGates(perf, 0.70, "2026-08-23")
	assert.True(t, result.SignificancePass)
	assert.True(t, result.WalkForwardPass)
	assert.True(t, result.CrossAgentPass)
	assert.True(t, result.Passed())
}
