// Package learning recomputes per-agent performance from the decision
// log, validates proposed weight updates through three statistical
// gates and commits approved weights.
package learning

import (
	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/modules/consensus"
	"github.com/mkosta/warroom/internal/modules/outcome"
)

// BuildPerformance derives an agent's trailing-window performance view
// from its graded vote outcomes. The view is a pure function of the
// log: it is recomputed on every learning cycle and never treated as a
// source of truth on its own.
func BuildPerformance(agent string, outcomes []consensus.VoteOutcome, neutralBand float64) domain.AgentPerformance {
	perf := domain.AgentPerformance{
		Agent:    agent,
		Outcomes: make([]bool, 0, len(outcomes)),
	}

	var confidenceSum, returnSum float64
	for _, o := range outcomes {
		correct := outcome.Grade(o.Action, o.RealizedReturn, neutralBand)
		perf.Outcomes = append(perf.Outcomes, correct)
		perf.TotalVotes++
		if correct {
			perf.CorrectVotes++
		}
		confidenceSum += o.Confidence
		returnSum += o.RealizedReturn
	}

	if perf.TotalVotes > 0 {
		perf.Accuracy = float64(perf.CorrectVotes) / float64(perf.TotalVotes)
		perf.AvgConfidence = confidenceSum / float64(perf.TotalVotes)
		perf.AvgReturn = returnSum / float64(perf.TotalVotes)
		perf.ConfidenceGap = perf.AvgConfidence - perf.Accuracy
	}
	return perf
}
