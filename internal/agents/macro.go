package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// MacroAgent reads the economic backdrop: rates, inflation, growth and
// the yield curve. Its opinion is instrument-agnostic by construction -
// the same macro regime applies to every instrument in a cycle.
type MacroAgent struct{}

// NewMacroAgent creates the macroeconomics agent.
func NewMacroAgent() *MacroAgent {
	return &MacroAgent{}
}

// Name implements domain.Advisor.
func (a *MacroAgent) Name() string { return "macro" }

// Analyze maps the macro regime to a directional stance. An inverted
// yield curve dominates every other signal.
func (a *MacroAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	mc := snapshot.Macro
	if mc.FedDirection == "" && mc.CPIYoY == 0 && mc.GDPGrowth == 0 {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  "no macro data in snapshot",
		}, nil
	}

	// Inversion checked first: historically the strongest recession signal.
	if mc.YieldCurve < -0.10 {
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.85,
			Rationale:  fmt.Sprintf("inverted yield curve (%.2f)", mc.YieldCurve),
		}, nil
	}

	switch {
	case mc.FedDirection == "CUTTING" && mc.CPIYoY < 3.0:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.84,
			Rationale:  "easing cycle with inflation contained",
		}, nil
	case mc.GDPGrowth > 2.5 && mc.CPIYoY < 3.5:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.78,
			Rationale:  fmt.Sprintf("goldilocks: GDP +%.1f%%, CPI %.1f%%", mc.GDPGrowth, mc.CPIYoY),
		}, nil
	case mc.FedDirection == "HIKING" && mc.CPIYoY > 4.5:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.76,
			Rationale:  "tightening into hot inflation",
		}, nil
	case mc.GDPGrowth < 1.0:
		return domain.Opinion{
			Action:     domain.ActionReduce,
			Confidence: 0.72,
			Rationale:  fmt.Sprintf("stalling growth: GDP +%.1f%%", mc.GDPGrowth),
		}, nil
	default:
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.65,
			Rationale:  "neutral macro regime",
		}, nil
	}
}
