package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/modules/consensus"
)

// Service runs the per-agent learning pipeline: recompute performance
// from the decision log, pass the proposed update through the gates and
// commit the new weight when all three approve.
type Service struct {
	decisions   *consensus.DecisionRepository
	weights     *WeightRepository
	agents      []string
	window      time.Duration
	neutralBand float64
	log         zerolog.Logger
}

// NewService creates the learning service. agents is the fixed panel
// roster; window is the trailing evaluation window over the decision
// log.
func NewService(decisions *consensus.DecisionRepository, weights *WeightRepository, agents []string, window time.Duration, neutralBand float64, log zerolog.Logger) *Service {
	return &Service{
		decisions:   decisions,
		weights:     weights,
		agents:      agents,
		window:      window,
		neutralBand: neutralBand,
		log:         log.With().Str("component", "learning").Logger(),
	}
}

// Weights exposes the weight repository for administrative reads.
func (s *Service) Weights() *WeightRepository {
	return s.weights
}

// Agents returns the panel roster the service learns over.
func (s *Service) Agents() []string {
	return s.agents
}

// PerformanceFor recomputes one agent's trailing-window performance
// from the decision log.
func (s *Service) PerformanceFor(ctx context.Context, agent string) (domain.AgentPerformance, error) {
	since := time.Now().UTC().Add(-s.window)
	outcomes, err := s.decisions.AgentOutcomes(ctx, agent, since)
	if err != nil {
		return domain.AgentPerformance{}, err
	}
	return BuildPerformance(agent, outcomes, s.neutralBand), nil
}

// PanelPerformances recomputes every agent's performance and the
// panel's mean accuracy over agents that have at least one graded vote.
func (s *Service) PanelPerformances(ctx context.Context) (map[string]domain.AgentPerformance, float64, error) {
	perfs := make(map[string]domain.AgentPerformance, len(s.agents))
	var sum float64
	var graded int

	for _, agent := range s.agents {
		perf, err := s.PerformanceFor(ctx, agent)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to compute performance for %s: %w", agent, err)
		}
		perfs[agent] = perf
		if perf.TotalVotes > 0 {
			sum += perf.Accuracy
			graded++
		}
	}

	peerMean := 0.0
	if graded > 0 {
		peerMean = sum / float64(graded)
	}
	return perfs, peerMean, nil
}

// LearnAgent runs one agent's proposed update through the gate chain
// and commits the new weight when all three gates pass. The verdict is
// recorded either way; a rejection is a deliberate no-op that leaves
// the prior weight intact.
func (s *Service) LearnAgent(ctx context.Context, perf domain.AgentPerformance, peerMean float64, cycleDate string) (domain.GateResult, error) {
	result := RunGates(perf, peerMean, cycleDate)
	result.Committed = result.Passed()

	if err := s.weights.RecordGateResult(ctx, result); err != nil {
		return result, err
	}

	if !result.Committed {
		s.log.Info().Str("agent", perf.Agent).Str("cycle", cycleDate).
			Bool("significance", result.SignificancePass).
			Bool("walkforward", result.WalkForwardPass).
			Bool("crossagent", result.CrossAgentPass).
			Float64("p_value", result.PValue).
			Msg("weight update rejected by gate chain")
		return result, nil
	}

	weight, reason := ProposeWeight(perf)
	rec := domain.AgentWeightRecord{
		Agent:         perf.Agent,
		Weight:        weight,
		Accuracy:      perf.Accuracy,
		AvgConfidence: perf.AvgConfidence,
		ConfidenceGap: perf.ConfidenceGap,
		Reason:        reason,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.weights.Upsert(ctx, rec); err != nil {
		return result, fmt.Errorf("failed to commit weight for %s: %w", perf.Agent, err)
	}

	s.log.Info().Str("agent", perf.Agent).Float64("weight", weight).Str("reason", reason).
		Float64("accuracy", perf.Accuracy).Float64("gap", perf.ConfidenceGap).
		Msg("weight committed")
	return result, nil
}

// AdjustWeights runs the full pipeline for every agent immediately and
// returns the resulting current weight state per agent. Agents without
// a committed record report the 1.0 default.
func (s *Service) AdjustWeights(ctx context.Context) (map[string]domain.AgentWeightRecord, error) {
	perfs, peerMean, err := s.PanelPerformances(ctx)
	if err != nil {
		return nil, err
	}

	cycleDate := time.Now().UTC().Format("2006-01-02")
	for _, agent := range s.agents {
		if _, err := s.LearnAgent(ctx, perfs[agent], peerMean, cycleDate); err != nil {
			return nil, err
		}
	}

	committed, err := s.weights.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	state := make(map[string]domain.AgentWeightRecord, len(s.agents))
	for _, agent := range s.agents {
		state[agent] = domain.AgentWeightRecord{Agent: agent, Weight: 1.0, Reason: "default"}
	}
	for _, rec := range committed {
		state[rec.Agent] = rec
	}
	return state, nil
}
