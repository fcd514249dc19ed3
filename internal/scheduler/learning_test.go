package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/metrics"
	"github.com/mkosta/warroom/internal/modules/learning"
)

// flakyService fails each agent's LearnAgent a configured number of
// times before succeeding.
type flakyService struct {
	mu        sync.Mutex
	agents    []string
	weights   *learning.WeightRepository
	failures  map[string]int
	callCount map[string]int
}

func (s *flakyService) Agents() []string                    { return s.agents }
func (s *flakyService) Weights() *learning.WeightRepository { return s.weights }

func (s *flakyService) PanelPerformances(context.Context) (map[string]domain.AgentPerformance, float64, error) {
	perfs := make(map[string]domain.AgentPerformance, len(s.agents))
	for _, a := range s.agents {
		perfs[a] = domain.AgentPerformance{Agent: a, TotalVotes: 30, CorrectVotes: 24, Accuracy: 0.8}
	}
	return perfs, 0.8, nil
}

func (s *flakyService) LearnAgent(_ context.Context, perf domain.AgentPerformance, _ float64, _ string) (domain.GateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount[perf.Agent]++
	if s.callCount[perf.Agent] <= s.failures[perf.Agent] {
		return domain.GateResult{}, errors.New("transient data source failure")
	}
	return domain.GateResult{Agent: perf.Agent, Committed: true}, nil
}

func testWeightsRepo(t *testing.T) *learning.WeightRepository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "weights.db"),
		Profile: database.ProfileStandard,
		Name:    "weights",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return learning.NewWeightRepository(db, zerolog.Nop())
}

func newTestScheduler(t *testing.T, svc LearningService) (*LearningScheduler, *[]time.Duration) {
	t.Helper()
	s := NewLearningScheduler(svc, "0 2 * * *", metrics.New(), zerolog.Nop())

	var slept []time.Duration
	var mu sync.Mutex
	s.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		slept = append(slept, d)
		return nil
	}
	return s, &slept
}

func TestRunCycleCommitsAfterTwoTransientFailures(t *testing.T) {
	svc := &flakyService{
		agents:    []string{"trader"},
		weights:   testWeightsRepo(t),
		failures:  map[string]int{"trader": 2},
		callCount: map[string]int{},
	}
	s, slept := newTestScheduler(t, svc)

	s.RunCycle(context.Background())

	assert.Equal(t, 3, svc.callCount["trader"], "two failures then the third attempt lands")
	assert.Equal(t, []time.Duration{5 * time.Minute, 10 * time.Minute}, *slept)

	state, err := svc.weights.CycleState(context.Background(), time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, domain.CycleCommitted, state)
}

func TestRunCycleExhaustedAgentDoesNotSinkSiblings(t *testing.T) {
	svc := &flakyService{
		agents:    []string{"trader", "macro"},
		weights:   testWeightsRepo(t),
		failures:  map[string]int{"trader": 99},
		callCount: map[string]int{},
	}
	s, slept := newTestScheduler(t, svc)

	s.RunCycle(context.Background())

	assert.Equal(t, 3, svc.callCount["trader"], "retry budget is three attempts")
	assert.Equal(t, 1, svc.callCount["macro"])
	assert.Len(t, *slept, 2, "backoff before the second and third attempt only")

	state, err := svc.weights.CycleState(context.Background(), time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, domain.CycleCommitted, state, "one exhausted agent does not fail the cycle")
}

func TestRunCycleAllAgentsExhaustedFails(t *testing.T) {
	svc := &flakyService{
		agents:    []string{"trader"},
		weights:   testWeightsRepo(t),
		failures:  map[string]int{"trader": 99},
		callCount: map[string]int{},
	}
	s, _ := newTestScheduler(t, svc)

	s.RunCycle(context.Background())

	state, err := svc.weights.CycleState(context.Background(), time.Now().UTC().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Equal(t, domain.CycleFailed, state)
}

func TestCycleStateUnknownCycleIsIdle(t *testing.T) {
	repo := testWeightsRepo(t)
	state, err := repo.CycleState(context.Background(), "1999-01-01")
	require.NoError(t, err)
	assert.Equal(t, domain.CycleIdle, state)
}
