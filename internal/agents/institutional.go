package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// InstitutionalAgent tracks smart money: institutional ownership flows
// and insider transactions.
type InstitutionalAgent struct{}

// NewInstitutionalAgent creates the smart-money tracking agent.
func NewInstitutionalAgent() *InstitutionalAgent {
	return &InstitutionalAgent{}
}

// Name implements domain.Advisor.
func (a *InstitutionalAgent) Name() string { return "institutional" }

// Analyze follows the direction and size of institutional flows.
func (a *InstitutionalAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	inst := snapshot.Institutional
	if inst.Ownership == 0 {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  "no institutional data in snapshot",
		}, nil
	}

	change := inst.OwnershipChangeQoQ

	var opinion domain.Opinion
	switch {
	case change >= 0.03:
		opinion = domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.80,
			Rationale:  fmt.Sprintf("strong accumulation: ownership +%.1fpp QoQ", change*100),
		}
	case change >= 0.01:
		opinion = domain.Opinion{
			Action:     domain.ActionIncrease,
			Confidence: 0.70,
			Rationale:  fmt.Sprintf("steady accumulation: ownership +%.1fpp QoQ", change*100),
		}
	case change <= -0.03:
		opinion = domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.80,
			Rationale:  fmt.Sprintf("distribution: ownership %.1fpp QoQ", change*100),
		}
	case change <= -0.01:
		opinion = domain.Opinion{
			Action:     domain.ActionReduce,
			Confidence: 0.70,
			Rationale:  fmt.Sprintf("light distribution: ownership %.1fpp QoQ", change*100),
		}
	default:
		opinion = domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.55,
			Rationale:  "institutional positioning unchanged",
		}
	}

	// Insider activity confirms or undercuts the flow signal.
	if inst.InsiderBuySellRatio > 1.2 && (opinion.Action == domain.ActionBuy || opinion.Action == domain.ActionIncrease) {
		opinion.Confidence = minFloat(0.90, opinion.Confidence+0.05)
		opinion.Rationale += "; insiders buying"
	} else if inst.InsiderBuySellRatio > 0 && inst.InsiderBuySellRatio < 0.5 &&
		(opinion.Action == domain.ActionBuy || opinion.Action == domain.ActionIncrease) {
		opinion.Confidence -= 0.10
		opinion.Rationale += "; insiders selling against the flow"
	}

	opinion.Confidence = clampConfidence(opinion.Confidence)
	return opinion, nil
}
