// Package execution translates consensus actions into the single order
// primitive the broker gateway understands and submits it downstream.
package execution

import (
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// sizing pairs a broker side with a position size multiplier.
type sizing struct {
	side       domain.ExecutionSide
	multiplier float64
}

// actionSizing is the total mapping from the consensus vocabulary to
// broker instructions. Soft actions trade at half size; HOLD and
// MAINTAIN produce no order.
var actionSizing = map[domain.Action]sizing{
	domain.ActionBuy:      {domain.SideBuy, 1.0},
	domain.ActionSell:     {domain.SideSell, 1.0},
	domain.ActionHold:     {domain.SideNone, 0.0},
	domain.ActionMaintain: {domain.SideNone, 0.0},
	domain.ActionReduce:   {domain.SideSell, 0.5},
	domain.ActionIncrease: {domain.SideBuy, 0.5},
	domain.ActionDCA:      {domain.SideBuy, 0.5},
}

// Map converts a consensus decision into an execution instruction. An
// action outside the vocabulary is a hard error: it means a bug
// upstream, and guessing a side for it would trade on garbage.
func Map(d *domain.ConsensusDecision) (domain.ExecutionInstruction, error) {
	s, ok := actionSizing[d.Action]
	if !ok {
		return domain.ExecutionInstruction{}, fmt.Errorf("no execution mapping for action %q", d.Action)
	}

	return domain.ExecutionInstruction{
		DecisionID:     d.ID,
		Instrument:     d.Instrument,
		Side:           s.side,
		SizeMultiplier: s.multiplier,
		Action:         d.Action,
		Confidence:     d.Confidence,
	}, nil
}
