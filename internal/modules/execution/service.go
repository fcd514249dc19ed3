package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/modules/consensus"
)

// Service decides whether a consensus decision becomes an order and, if
// so, submits it to the broker gateway and records it in the log.
type Service struct {
	sink          domain.ExecutionSink
	decisions     *consensus.DecisionRepository
	minConfidence float64
	dryRun        bool
	log           zerolog.Logger
}

// NewService creates the execution service. minConfidence is the
// aggregate-confidence floor below which no order is emitted; dryRun
// logs would-be orders without submitting them.
func NewService(sink domain.ExecutionSink, decisions *consensus.DecisionRepository, minConfidence float64, dryRun bool, log zerolog.Logger) *Service {
	return &Service{
		sink:          sink,
		decisions:     decisions,
		minConfidence: minConfidence,
		dryRun:        dryRun,
		log:           log.With().Str("component", "execution").Logger(),
	}
}

// Process maps a decision and submits the resulting instruction when it
// clears the confidence floor. It returns the instruction that was (or
// in dry-run mode, would have been) submitted, or nil when the decision
// produced no order.
func (s *Service) Process(ctx context.Context, d *domain.ConsensusDecision) (*domain.ExecutionInstruction, error) {
	instr, err := Map(d)
	if err != nil {
		return nil, err
	}

	if instr.Side == domain.SideNone {
		s.log.Debug().Str("decision_id", d.ID).Str("action", string(d.Action)).
			Msg("no-order action, nothing to execute")
		return nil, nil
	}

	if d.Confidence < s.minConfidence {
		s.log.Info().Str("decision_id", d.ID).Str("action", string(d.Action)).
			Float64("confidence", d.Confidence).Float64("floor", s.minConfidence).
			Msg("confidence below execution floor, holding fire")
		return nil, nil
	}

	if s.dryRun {
		s.log.Info().Str("decision_id", d.ID).Str("instrument", d.Instrument).
			Str("side", string(instr.Side)).Float64("multiplier", instr.SizeMultiplier).
			Msg("dry run: instruction not submitted")
		return &instr, nil
	}

	if err := s.sink.Submit(ctx, instr); err != nil {
		return nil, fmt.Errorf("failed to submit instruction for %s: %w", d.ID, err)
	}

	if err := s.decisions.RecordExecution(ctx, instr, time.Now().UTC()); err != nil {
		// The order is already with the broker; a bookkeeping failure
		// must not look like a failed submission.
		s.log.Error().Err(err).Str("decision_id", d.ID).Msg("submitted but failed to record execution")
	}

	s.log.Info().Str("decision_id", d.ID).Str("instrument", d.Instrument).
		Str("side", string(instr.Side)).Float64("multiplier", instr.SizeMultiplier).
		Float64("confidence", d.Confidence).Msg("instruction submitted")

	return &instr, nil
}
