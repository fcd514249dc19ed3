package agents

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mkosta/warroom/internal/domain"
)

// minRiskSamples is the minimum number of daily returns needed for a
// volatility estimate worth acting on.
const minRiskSamples = 20

// RiskAgent guards downside: annualized volatility, drawdown and beta.
// It carries the largest base share on the panel, so its opinion leans
// conservative (REDUCE/HOLD) rather than directional.
type RiskAgent struct{}

// NewRiskAgent creates the risk-management agent.
func NewRiskAgent() *RiskAgent {
	return &RiskAgent{}
}

// Name implements domain.Advisor.
func (a *RiskAgent) Name() string { return "risk" }

// Analyze grades the instrument's current risk posture.
func (a *RiskAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	returns := snapshot.Market.Returns
	if len(returns) < minRiskSamples {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  fmt.Sprintf("insufficient return history (%d samples)", len(returns)),
		}, nil
	}

	// Annualized volatility from daily returns (252 trading days).
	volatility := stat.StdDev(returns, nil) * math.Sqrt(252)
	drawdown := maxDrawdown(snapshot.Market.PriceHistory)
	beta := snapshot.Market.Beta

	switch {
	case volatility > 0.40 || drawdown < -0.25:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.85,
			Rationale:  fmt.Sprintf("extreme risk: volatility %.0f%%, drawdown %.0f%%", volatility*100, drawdown*100),
		}, nil
	case volatility > 0.30 && beta > 1.5:
		return domain.Opinion{
			Action:     domain.ActionReduce,
			Confidence: 0.75,
			Rationale:  fmt.Sprintf("elevated volatility %.0f%% with beta %.2f", volatility*100, beta),
		}, nil
	case volatility < 0.20 && drawdown > -0.05:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.82,
			Rationale:  fmt.Sprintf("low risk: volatility %.0f%%, shallow drawdown", volatility*100),
		}, nil
	case volatility < 0.25:
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.65,
			Rationale:  "risk within tolerance, no change warranted",
		}, nil
	default:
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.60,
			Rationale:  fmt.Sprintf("moderate risk: volatility %.0f%%", volatility*100),
		}, nil
	}
}

// maxDrawdown computes the worst peak-to-trough decline over the price
// series. Returns 0 for fewer than two prices.
func maxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	peak := prices[0]
	worst := 0.0
	for _, p := range prices[1:] {
		if p > peak {
			peak = p
		} else if peak > 0 {
			dd := (p - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}
