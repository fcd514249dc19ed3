package consensus

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosta/warroom/internal/agents"
	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/domain"
)

// scenarioVotes is a full eight-agent vote set with hand-computed
// contributions: BUY = 0.342, HOLD = 0.304, SELL = 0.064.
func scenarioVotes() []domain.Vote {
	return []domain.Vote{
		{Agent: "risk", Action: domain.ActionHold, Confidence: 0.70, Weight: 1.0, BaseShare: 0.20},
		{Agent: "trader", Action: domain.ActionBuy, Confidence: 0.90, Weight: 1.2, BaseShare: 0.15},
		{Agent: "analyst", Action: domain.ActionBuy, Confidence: 0.80, Weight: 1.0, BaseShare: 0.15},
		{Agent: "chip_war", Action: domain.ActionBuy, Confidence: 0.50, Weight: 1.0, BaseShare: 0.12},
		{Agent: "news", Action: domain.ActionSell, Confidence: 0.80, Weight: 0.8, BaseShare: 0.10},
		{Agent: "macro", Action: domain.ActionHold, Confidence: 0.65, Weight: 1.0, BaseShare: 0.10},
		{Agent: "institutional", Action: domain.ActionHold, Confidence: 0.55, Weight: 1.0, BaseShare: 0.10},
		{Agent: "sentiment", Action: domain.ActionHold, Confidence: 0.55, Weight: 1.0, BaseShare: 0.08},
	}
}

func TestTallyWeightedScores(t *testing.T) {
	scores, action, confidence := Tally(scenarioVotes())

	assert.InDelta(t, 0.342, scores[domain.ActionBuy], 1e-9)
	assert.InDelta(t, 0.304, scores[domain.ActionHold], 1e-9)
	assert.InDelta(t, 0.064, scores[domain.ActionSell], 1e-9)

	assert.Equal(t, domain.ActionBuy, action)
	assert.InDelta(t, 0.342, confidence, 1e-9, "aggregate confidence is the winning raw score")

	// Every vocabulary action gets a score, voted on or not.
	assert.Len(t, scores, len(domain.AllActions))
	assert.Zero(t, scores[domain.ActionDCA])
}

func TestTallyDeterministicUnderVoteOrder(t *testing.T) {
	votes := scenarioVotes()
	_, wantAction, wantConfidence := Tally(votes)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]domain.Vote, len(votes))
		copy(shuffled, votes)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		_, action, confidence := Tally(shuffled)
		assert.Equal(t, wantAction, action)
		assert.Equal(t, wantConfidence, confidence)
	}
}

func TestTallyAbstentionContributesNothing(t *testing.T) {
	votes := []domain.Vote{
		{Agent: "risk", Action: domain.ActionBuy, Confidence: 0.50, Weight: 1.0, BaseShare: 0.20},
		{Agent: "chip_war", Action: domain.ActionMaintain, Confidence: 0.0, Weight: 0.0, BaseShare: 0.12},
	}

	scores, action, _ := Tally(votes)
	assert.Zero(t, scores[domain.ActionMaintain])
	assert.Equal(t, domain.ActionBuy, action)
}

func TestTallyAllAbstainResolvesToMaintain(t *testing.T) {
	agents := []string{"risk", "trader", "analyst", "chip_war", "news", "macro", "institutional", "sentiment"}
	votes := make([]domain.Vote, 0, len(agents))
	for _, agent := range agents {
		votes = append(votes, domain.Vote{Agent: agent, Action: domain.ActionMaintain, Confidence: 0, Weight: 0, BaseShare: 0.125})
	}

	scores, action, confidence := Tally(votes)
	assert.Equal(t, domain.ActionMaintain, action, "a cycle nobody voted in must not get a directional label")
	assert.Zero(t, confidence)
	for _, a := range domain.AllActions {
		assert.Zero(t, scores[a])
	}
}

func TestTallyTieBrokenByContributorCount(t *testing.T) {
	// SELL and HOLD both score 0.10; HOLD has two backers, SELL one.
	votes := []domain.Vote{
		{Agent: "news", Action: domain.ActionSell, Confidence: 1.0, Weight: 1.0, BaseShare: 0.10},
		{Agent: "macro", Action: domain.ActionHold, Confidence: 0.5, Weight: 1.0, BaseShare: 0.10},
		{Agent: "institutional", Action: domain.ActionHold, Confidence: 0.5, Weight: 1.0, BaseShare: 0.10},
	}

	_, action, _ := Tally(votes)
	assert.Equal(t, domain.ActionHold, action)
}

func TestTallyFullTieFallsToLexicographicOrder(t *testing.T) {
	// Equal scores, one backer each: BUY precedes SELL in the vocabulary.
	votes := []domain.Vote{
		{Agent: "news", Action: domain.ActionSell, Confidence: 0.5, Weight: 1.0, BaseShare: 0.10},
		{Agent: "trader", Action: domain.ActionBuy, Confidence: 0.5, Weight: 1.0, BaseShare: 0.10},
	}

	_, action, _ := Tally(votes)
	assert.Equal(t, domain.ActionBuy, action)
}

type staticWeights map[string]float64

func (w staticWeights) CurrentWeights(context.Context) (map[string]float64, error) {
	return w, nil
}

func testDecisionsDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "decisions.db"),
		Profile: database.ProfileLedger,
		Name:    "decisions",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDecidePersistsFullVoteSet(t *testing.T) {
	db := testDecisionsDB(t)
	repo := NewDecisionRepository(db, zerolog.Nop())

	panel, err := agents.NewPanel(time.Second, zerolog.Nop())
	require.NoError(t, err)

	engine := NewEngine(panel, staticWeights{"trader": 1.2}, repo, 5*time.Second, zerolog.Nop())

	snapshot := &domain.ContextSnapshot{
		Instrument: "NVDA",
		Timestamp:  time.Now().UTC(),
		Market: domain.MarketIndicators{
			CurrentPrice:  130.0,
			Sector:        "Semiconductors",
			RevenueGrowth: 0.22,
			ProfitMargin:  0.32,
		},
		News: domain.SentimentIndicators{Score: 0.7, Volume: 15},
	}

	decision, err := engine.Decide(context.Background(), snapshot)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, decision.Status)
	assert.Equal(t, "NVDA", decision.Instrument)
	assert.Equal(t, 130.0, decision.InitialPrice)
	assert.Len(t, decision.Votes, 8, "one vote per panel member, abstentions included")
	assert.InDelta(t, decision.Scores[decision.Action], decision.Confidence, 1e-9)

	// Round-trip through the log.
	stored, err := repo.GetByID(context.Background(), decision.ID)
	require.NoError(t, err)
	assert.Equal(t, decision.Action, stored.Action)
	assert.Len(t, stored.Votes, 8)
	assert.InDelta(t, decision.Confidence, stored.Confidence, 1e-9)
}

func TestDecideShortDeadlineStillYieldsEightVotes(t *testing.T) {
	db := testDecisionsDB(t)
	repo := NewDecisionRepository(db, zerolog.Nop())

	panel, err := agents.NewPanel(time.Second, zerolog.Nop())
	require.NoError(t, err)

	// A cycle deadline of one nanosecond: every agent misses it.
	engine := NewEngine(panel, staticWeights{}, repo, time.Nanosecond, zerolog.Nop())

	decision, err := engine.Decide(context.Background(), &domain.ContextSnapshot{Instrument: "AAPL"})
	require.NoError(t, err)
	require.Len(t, decision.Votes, 8)
	for _, v := range decision.Votes {
		assert.Equal(t, domain.ActionMaintain, v.Action)
		assert.Zero(t, v.Confidence)
	}
	assert.Equal(t, domain.ActionMaintain, decision.Action)
	assert.Zero(t, decision.Confidence)
}
