// Package consensus implements the weighted-voting engine that turns
// eight independent agent votes into one decision per instrument per
// cycle, and the repository that persists the decision log.
package consensus

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/agents"
	"github.com/mkosta/warroom/internal/domain"
)

// WeightProvider supplies the current committed learned weight per
// agent. Agents without a committed weight default to 1.0.
type WeightProvider interface {
	CurrentWeights(ctx context.Context) (map[string]float64, error)
}

// Engine runs one decision cycle: fan the snapshot out to the panel,
// score the votes and append the result to the decision log.
type Engine struct {
	panel         *agents.Panel
	weights       WeightProvider
	decisions     *DecisionRepository
	cycleDeadline time.Duration
	log           zerolog.Logger
}

// NewEngine creates the consensus engine.
func NewEngine(panel *agents.Panel, weights WeightProvider, decisions *DecisionRepository, cycleDeadline time.Duration, log zerolog.Logger) *Engine {
	return &Engine{
		panel:         panel,
		weights:       weights,
		decisions:     decisions,
		cycleDeadline: cycleDeadline,
		log:           log.With().Str("component", "consensus").Logger(),
	}
}

// Decide produces and persists one consensus decision for a snapshot.
// The whole panel runs concurrently under the cycle deadline; agents
// that do not respond in time are finalized as abstentions, so the
// cycle always completes with exactly one vote per agent.
func (e *Engine) Decide(ctx context.Context, snapshot *domain.ContextSnapshot) (*domain.ConsensusDecision, error) {
	weights, err := e.weights.CurrentWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load agent weights: %w", err)
	}

	cycleCtx, cancel := context.WithTimeout(ctx, e.cycleDeadline)
	defer cancel()

	votes := e.collectVotes(cycleCtx, snapshot, weights)

	scores, action, confidence := Tally(votes)

	decision := &domain.ConsensusDecision{
		ID:           uuid.NewString(),
		Instrument:   snapshot.Instrument,
		CreatedAt:    time.Now().UTC(),
		Votes:        votes,
		Scores:       scores,
		Action:       action,
		Confidence:   confidence,
		InitialPrice: snapshot.Market.CurrentPrice,
		Status:       domain.StatusPending,
	}

	if err := e.decisions.Save(ctx, decision); err != nil {
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	e.log.Info().
		Str("decision_id", decision.ID).
		Str("instrument", decision.Instrument).
		Str("action", string(decision.Action)).
		Float64("confidence", decision.Confidence).
		Msg("consensus reached")

	return decision, nil
}

// collectVotes fans the snapshot out to every panel member and gathers
// votes until all respond or the cycle deadline expires. Missing votes
// are filled with abstentions; the returned slice always has one entry
// per panel member, in registration order.
func (e *Engine) collectVotes(ctx context.Context, snapshot *domain.ContextSnapshot, weights map[string]float64) []domain.Vote {
	members := e.panel.Members()
	results := make(chan domain.Vote, len(members))

	for _, m := range members {
		go func(m agents.Member) {
			weight, ok := weights[m.Advisor.Name()]
			if !ok {
				weight = 1.0
			}
			results <- e.panel.CollectVote(ctx, m, snapshot, weight)
		}(m)
	}

	got := make(map[string]domain.Vote, len(members))
collect:
	for range members {
		select {
		case v := <-results:
			got[v.Agent] = v
		case <-ctx.Done():
			e.log.Warn().Str("instrument", snapshot.Instrument).Int("received", len(got)).
				Msg("cycle deadline reached, finalizing with abstentions")
			break collect
		}
	}

	for _, v := range e.panel.AbstentionsFor(got) {
		got[v.Agent] = v
	}

	// Registration order keeps the persisted vote set deterministic.
	ordered := make([]domain.Vote, 0, len(members))
	for _, m := range members {
		ordered = append(ordered, got[m.Advisor.Name()])
	}
	return ordered
}

// Tally computes per-action weighted scores and selects the consensus
// action. Every action in the vocabulary gets a score, so the output
// shape is identical on every cycle. Contributions are summed with the
// votes sorted by agent name, so the floating-point result is
// bit-identical regardless of vote arrival order.
//
// Selection is deterministic: highest score wins; on an exact tie the
// action with more voters wins; a remaining tie falls to lexicographic
// order. Counting voters rather than positive contributions means an
// all-abstain cycle resolves to MAINTAIN, never to a directional label
// nobody voted for. The aggregate confidence is the winning action's
// raw score, deliberately not normalized, so low-conviction cycles are
// visible downstream.
func Tally(votes []domain.Vote) (map[domain.Action]float64, domain.Action, float64) {
	ordered := make([]domain.Vote, len(votes))
	copy(ordered, votes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Agent < ordered[j].Agent })

	scores := make(map[domain.Action]float64, len(domain.AllActions))
	voters := make(map[domain.Action]int, len(domain.AllActions))
	for _, a := range domain.AllActions {
		scores[a] = 0
	}

	for _, v := range ordered {
		scores[v.Action] += v.Contribution()
		voters[v.Action]++
	}

	const eps = 1e-12
	best := domain.AllActions[0]
	for _, a := range domain.AllActions[1:] {
		switch {
		case scores[a] > scores[best]+eps:
			best = a
		case scores[a] > scores[best]-eps && voters[a] > voters[best]:
			// Exact tie broken by breadth of support. AllActions is in
			// lexicographic order, so keeping the earlier action on a
			// full tie is the final tie-break.
			best = a
		}
	}

	return scores, best, scores[best]
}
