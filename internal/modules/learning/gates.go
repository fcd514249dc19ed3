package learning

import (
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mkosta/warroom/internal/domain"
)

const (
	// MinSampleSize is the fewest graded votes an agent needs before
	// any weight update is considered.
	MinSampleSize = 20

	// SignificanceLevel is the p-value threshold for the significance
	// gate: p at or above it means the accuracy is indistinguishable
	// from coin-flipping.
	SignificanceLevel = 0.05

	// WalkForwardSplit is the fraction of the trailing window used as
	// the training segment; the remainder is graded out of sample.
	WalkForwardSplit = 0.70

	// OOSAccuracyFloor is the minimum out-of-sample accuracy; below it
	// the observed skill is treated as overfit to older data.
	OOSAccuracyFloor = 0.55

	// CrossAgentMargin is how far below the panel's mean accuracy an
	// agent may trail before the update is escalated to a human
	// instead of auto-committed.
	CrossAgentMargin = 0.15
)

// SignificanceGate tests whether correct out of total beats chance.
// The p-value is the one-sided binomial probability of seeing at least
// this many correct calls if the agent were guessing (p = 0.5).
func SignificanceGate(correct, total int) (bool, float64) {
	if total < MinSampleSize {
		return false, 1.0
	}

	dist := distuv.Binomial{N: float64(total), P: 0.5}
	pValue := 1.0
	if correct > 0 {
		pValue = 1.0 - dist.CDF(float64(correct-1))
	}
	return pValue < SignificanceLevel, pValue
}

// WalkForwardGate splits the chronological outcome series and grades
// only the later out-of-sample segment. Skill that exists only in the
// training segment is overfitting, not skill.
func WalkForwardGate(outcomes []bool) (bool, float64) {
	split := int(float64(len(outcomes)) * WalkForwardSplit)
	oos := outcomes[split:]
	if len(oos) == 0 {
		return false, 0
	}

	correct := 0
	for _, c := range oos {
		if c {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(oos))
	return accuracy >= OOSAccuracyFloor, accuracy
}

// CrossAgentGate compares an agent against the panel's mean accuracy.
// Persistent relative underperformance is a red flag for review, not
// something to quietly reweight.
func CrossAgentGate(accuracy, peerMean float64) (bool, float64) {
	delta := accuracy - peerMean
	return delta >= -CrossAgentMargin, delta
}

// RunGates evaluates all three gates against a performance view. The
// gates are independent and order-insensitive; every verdict is
// recorded so rejections stay visible to operators.
func RunGates(perf domain.AgentPerformance, peerMean float64, cycleDate string) domain.GateResult {
	result := domain.GateResult{
		Agent:     perf.Agent,
		CycleDate: cycleDate,
		CreatedAt: time.Now().UTC(),
	}

	result.SignificancePass, result.PValue = SignificanceGate(perf.CorrectVotes, perf.TotalVotes)
	result.WalkForwardPass, result.OOSAccuracy = WalkForwardGate(perf.Outcomes)
	result.CrossAgentPass, result.PeerDelta = CrossAgentGate(perf.Accuracy, peerMean)

	return result
}
