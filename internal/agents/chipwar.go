package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// chipWarSectors is the coverage universe of the semiconductor
// specialist. Outside it the agent abstains.
var chipWarSectors = map[string]bool{
	"Semiconductors":          true,
	"Semiconductor Equipment": true,
	"Technology Hardware":     true,
}

// ChipWarAgent is the semiconductor-competition specialist. It only has
// an opinion on instruments inside its sector universe; for anything
// else it returns MAINTAIN at zero confidence so it never distorts a
// cycle it knows nothing about.
type ChipWarAgent struct{}

// NewChipWarAgent creates the semiconductor-competition agent.
func NewChipWarAgent() *ChipWarAgent {
	return &ChipWarAgent{}
}

// Name implements domain.Advisor.
func (a *ChipWarAgent) Name() string { return "chip_war" }

// Analyze grades a semiconductor franchise on growth and margin power,
// the two levers that decide who wins a capacity war.
func (a *ChipWarAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	if !chipWarSectors[snapshot.Market.Sector] {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  fmt.Sprintf("%s is outside the semiconductor coverage universe", snapshot.Instrument),
		}, nil
	}

	m := snapshot.Market
	switch {
	case m.RevenueGrowth > 0.15 && m.ProfitMargin > 0.25:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.82,
			Rationale:  fmt.Sprintf("winning the capacity race: revenue +%.0f%%, margin %.0f%%", m.RevenueGrowth*100, m.ProfitMargin*100),
		}, nil
	case m.RevenueGrowth > 0.08:
		return domain.Opinion{
			Action:     domain.ActionIncrease,
			Confidence: 0.70,
			Rationale:  fmt.Sprintf("gaining share: revenue +%.0f%%", m.RevenueGrowth*100),
		}, nil
	case m.ProfitMargin < 0.10 && m.RevenueGrowth < 0:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.75,
			Rationale:  "losing the margin war: compressed pricing, shrinking revenue",
		}, nil
	default:
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.60,
			Rationale:  "competitive position stable",
		}, nil
	}
}
