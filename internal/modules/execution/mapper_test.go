package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosta/warroom/internal/domain"
)

func decisionFor(action domain.Action, confidence float64) *domain.ConsensusDecision {
	return &domain.ConsensusDecision{
		ID:         "d-1",
		Instrument: "AAPL",
		Action:     action,
		Confidence: confidence,
	}
}

func TestMapReduceIsHalfSizeSell(t *testing.T) {
	instr, err := Map(decisionFor(domain.ActionReduce, 0.8))
	require.NoError(t, err)
	assert.Equal(t, domain.SideSell, instr.Side)
	assert.Equal(t, 0.5, instr.SizeMultiplier)
}

func TestMapCoversFullVocabulary(t *testing.T) {
	cases := []struct {
		action     domain.Action
		side       domain.ExecutionSide
		multiplier float64
	}{
		{domain.ActionBuy, domain.SideBuy, 1.0},
		{domain.ActionSell, domain.SideSell, 1.0},
		{domain.ActionHold, domain.SideNone, 0.0},
		{domain.ActionMaintain, domain.SideNone, 0.0},
		{domain.ActionReduce, domain.SideSell, 0.5},
		{domain.ActionIncrease, domain.SideBuy, 0.5},
		{domain.ActionDCA, domain.SideBuy, 0.5},
	}
	require.Len(t, cases, len(domain.AllActions))

	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			instr, err := Map(decisionFor(tc.action, 0.9))
			require.NoError(t, err)
			assert.Equal(t, tc.side, instr.Side)
			assert.Equal(t, tc.multiplier, instr.SizeMultiplier)
			assert.Equal(t, "d-1", instr.DecisionID)
			assert.Equal(t, 0.9, instr.Confidence)
		})
	}
}

func TestMapUnknownActionIsHardError(t *testing.T) {
	_, err := Map(decisionFor(domain.Action("YOLO"), 0.9))
	assert.Error(t, err)
}
