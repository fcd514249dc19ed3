package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosta/warroom/internal/domain"
)

func TestChipWarAbstainsOutsideSector(t *testing.T) {
	agent := NewChipWarAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "KO",
		Market:     domain.MarketIndicators{Sector: "Consumer Staples", RevenueGrowth: 0.20, ProfitMargin: 0.30},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMaintain, op.Action)
	assert.Zero(t, op.Confidence)
}

func TestChipWarInsideSector(t *testing.T) {
	agent := NewChipWarAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "NVDA",
		Market:     domain.MarketIndicators{Sector: "Semiconductors", RevenueGrowth: 0.22, ProfitMargin: 0.32},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, op.Action)
	assert.Greater(t, op.Confidence, 0.7)
}

func TestRiskAbstainsWithoutHistory(t *testing.T) {
	agent := NewRiskAgent()
	snapshot := &domain.ContextSnapshot{Instrument: "AAPL"}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMaintain, op.Action)
	assert.Zero(t, op.Confidence)
}

func TestTraderAbstainsWithoutHistory(t *testing.T) {
	agent := NewTraderAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "AAPL",
		Market:     domain.MarketIndicators{PriceHistory: []float64{100, 101, 102}},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMaintain, op.Action)
	assert.Zero(t, op.Confidence)
}

func TestNewsAbstainsWithoutCoverage(t *testing.T) {
	agent := NewNewsAgent()
	op, err := agent.Analyze(context.Background(), &domain.ContextSnapshot{Instrument: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMaintain, op.Action)
	assert.Zero(t, op.Confidence)
}

func TestNewsStronglyPositive(t *testing.T) {
	agent := NewNewsAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "AAPL",
		News:       domain.SentimentIndicators{Score: 0.8, Volume: 12},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, op.Action)
	assert.InDelta(t, 0.80, op.Confidence, 1e-9)
}

func TestSentimentThinVolumeAbstains(t *testing.T) {
	agent := NewSentimentAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "AAPL",
		Social:     domain.SentimentIndicators{Score: 0.9, Volume: 3},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMaintain, op.Action)
	assert.Zero(t, op.Confidence)
}

func TestSentimentEuphoriaIsNotABuy(t *testing.T) {
	agent := NewSentimentAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "GME",
		Social:     domain.SentimentIndicators{Score: 0.95, Volume: 500},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, op.Action)
}

func TestMacroInvertedCurveDominates(t *testing.T) {
	agent := NewMacroAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "SPY",
		Macro: domain.MacroIndicators{
			FedDirection: "CUTTING",
			CPIYoY:       2.1,
			GDPGrowth:    3.0,
			YieldCurve:   -0.45,
		},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSell, op.Action, "inversion must outrank the easing signal")
}

func TestInstitutionalAccumulation(t *testing.T) {
	agent := NewInstitutionalAgent()
	snapshot := &domain.ContextSnapshot{
		Instrument: "MSFT",
		Institutional: domain.InstitutionalIndicators{
			Ownership:           0.71,
			OwnershipChangeQoQ:  0.04,
			InsiderBuySellRatio: 1.5,
		},
	}

	op, err := agent.Analyze(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, op.Action)
	assert.InDelta(t, 0.85, op.Confidence, 1e-9)
}

func TestAnalystAbstainsWithoutFundamentals(t *testing.T) {
	agent := NewAnalystAgent()
	op, err := agent.Analyze(context.Background(), &domain.ContextSnapshot{Instrument: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMaintain, op.Action)
	assert.Zero(t, op.Confidence)
}
