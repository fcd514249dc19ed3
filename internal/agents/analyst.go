package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// AnalystAgent reads fundamentals: valuation, growth and profitability.
type AnalystAgent struct{}

// NewAnalystAgent creates the fundamental-analysis agent.
func NewAnalystAgent() *AnalystAgent {
	return &AnalystAgent{}
}

// Name implements domain.Advisor.
func (a *AnalystAgent) Name() string { return "analyst" }

// Analyze weighs valuation against growth and margin quality.
func (a *AnalystAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	m := snapshot.Market
	if m.PERatio == 0 && m.RevenueGrowth == 0 && m.ProfitMargin == 0 {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  "no fundamental data in snapshot",
		}, nil
	}

	nearLow := m.Low52W > 0 && m.CurrentPrice > 0 && m.CurrentPrice < m.Low52W*1.10

	switch {
	case m.PERatio > 0 && m.PERatio < 18 && m.RevenueGrowth > 0.05:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.80,
			Rationale:  fmt.Sprintf("undervalued growth: PE %.1f, revenue +%.1f%%", m.PERatio, m.RevenueGrowth*100),
		}, nil
	case nearLow && m.ProfitMargin > 0.15 && m.RevenueGrowth > 0:
		// Quality franchise trading near its 52-week low: average in.
		return domain.Opinion{
			Action:     domain.ActionDCA,
			Confidence: 0.72,
			Rationale:  fmt.Sprintf("quality at 52w low: margin %.0f%%", m.ProfitMargin*100),
		}, nil
	case m.PERatio > 40 && m.RevenueGrowth < 0.05:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.75,
			Rationale:  fmt.Sprintf("rich valuation without growth: PE %.1f", m.PERatio),
		}, nil
	case m.RevenueGrowth < 0 && m.ProfitMargin < 0.05:
		return domain.Opinion{
			Action:     domain.ActionReduce,
			Confidence: 0.70,
			Rationale:  "deteriorating fundamentals: shrinking revenue, thin margins",
		}, nil
	case m.ProfitMargin > 0.20 && m.RevenueGrowth > 0.08:
		return domain.Opinion{
			Action:     domain.ActionIncrease,
			Confidence: 0.70,
			Rationale:  fmt.Sprintf("compounding quality: margin %.0f%%, revenue +%.1f%%", m.ProfitMargin*100, m.RevenueGrowth*100),
		}, nil
	default:
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.60,
			Rationale:  "fundamentals fairly priced",
		}, nil
	}
}
