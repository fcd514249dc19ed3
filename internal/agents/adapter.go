package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// CollectVote runs one advisor against a snapshot and normalizes the
// result into a canonical Vote. The adapter boundary guarantees:
//
//   - the returned action is always part of the vocabulary
//   - confidence is clamped to [0, 1]
//   - a per-agent timeout applies on top of the caller's cycle deadline
//   - errors, timeouts and panics become zero-weight abstentions,
//     never cycle failures
func (p *Panel) CollectVote(ctx context.Context, m Member, snapshot *domain.ContextSnapshot, weight float64) domain.Vote {
	name := m.Advisor.Name()

	agentCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	opinion, err := p.analyzeSafe(agentCtx, m.Advisor, snapshot)
	if err != nil {
		p.log.Warn().Err(err).Str("agent", name).Str("instrument", snapshot.Instrument).
			Msg("agent failed, recording abstention")
		return abstention(name, m.BaseShare, err.Error())
	}

	if !opinion.Action.IsValid() {
		// A broken agent is indistinguishable from a failed one at this
		// boundary; abstain rather than poison the score map.
		p.log.Error().Str("agent", name).Str("action", string(opinion.Action)).
			Msg("agent produced an action outside the vocabulary, recording abstention")
		return abstention(name, m.BaseShare, fmt.Sprintf("invalid action %q", opinion.Action))
	}

	return domain.Vote{
		Agent:      name,
		Action:     opinion.Action,
		Confidence: clampConfidence(opinion.Confidence),
		Rationale:  opinion.Rationale,
		Weight:     weight,
		BaseShare:  m.BaseShare,
	}
}

// analyzeSafe invokes the advisor, converting panics and context
// expiry into errors.
func (p *Panel) analyzeSafe(ctx context.Context, advisor domain.Advisor, snapshot *domain.ContextSnapshot) (opinion domain.Opinion, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()

	type result struct {
		opinion domain.Opinion
		err     error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		op, analyzeErr := advisor.Analyze(ctx, snapshot)
		done <- result{opinion: op, err: analyzeErr}
	}()

	select {
	case <-ctx.Done():
		return domain.Opinion{}, fmt.Errorf("agent timed out: %w", ctx.Err())
	case res := <-done:
		return res.opinion, res.err
	}
}

// abstention is the canonical non-vote: MAINTAIN at zero confidence and
// zero weight. It contributes nothing to any action's score.
func abstention(agent string, baseShare float64, reason string) domain.Vote {
	return domain.Vote{
		Agent:      agent,
		Action:     domain.ActionMaintain,
		Confidence: 0.0,
		Rationale:  "abstained: " + reason,
		Weight:     0.0,
		BaseShare:  baseShare,
	}
}

// AbstentionsFor builds abstention votes for every panel member that has
// no entry in got. The consensus engine uses this to finalize a cycle at
// the global deadline with whatever votes arrived.
func (p *Panel) AbstentionsFor(got map[string]domain.Vote) []domain.Vote {
	missing := make([]domain.Vote, 0)
	for _, m := range p.members {
		if _, ok := got[m.Advisor.Name()]; !ok {
			missing = append(missing, abstention(m.Advisor.Name(), m.BaseShare, "no response before cycle deadline"))
		}
	}
	return missing
}
