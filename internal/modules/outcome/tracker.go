// Package outcome grades matured decisions against realized prices and
// transitions them from PENDING to EVALUATED in the decision log.
package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/modules/consensus"
)

// PriceSource supplies the current price for an instrument at
// evaluation time.
type PriceSource interface {
	CurrentPrice(ctx context.Context, instrument string) (float64, error)
}

// Tracker evaluates decisions whose maturation horizon has elapsed.
type Tracker struct {
	decisions   *consensus.DecisionRepository
	prices      PriceSource
	maturation  time.Duration
	neutralBand float64
	log         zerolog.Logger
}

// NewTracker creates an outcome tracker. maturation is the minimum age
// before a decision can be graded; neutralBand is the absolute return
// inside which the market is considered flat.
func NewTracker(decisions *consensus.DecisionRepository, prices PriceSource, maturation time.Duration, neutralBand float64, log zerolog.Logger) *Tracker {
	return &Tracker{
		decisions:   decisions,
		prices:      prices,
		maturation:  maturation,
		neutralBand: neutralBand,
		log:         log.With().Str("component", "outcome").Logger(),
	}
}

// NeutralBand returns the configured flat-market band.
func (t *Tracker) NeutralBand() float64 {
	return t.neutralBand
}

// EvaluateMatured grades every matured PENDING decision and returns the
// number evaluated. Individual failures (missing price, broken row) are
// logged and skipped; the decision stays PENDING and is retried on the
// next pass. Replays are safe: the repository's status guard makes each
// evaluation commit at most once.
func (t *Tracker) EvaluateMatured(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-t.maturation)
	matured, err := t.decisions.PendingMatured(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to load matured decisions: %w", err)
	}

	evaluated := 0
	for _, d := range matured {
		if err := t.evaluate(ctx, d); err != nil {
			t.log.Warn().Err(err).Str("decision_id", d.ID).Str("instrument", d.Instrument).
				Msg("evaluation skipped, will retry next pass")
			continue
		}
		evaluated++
	}

	if evaluated > 0 {
		t.log.Info().Int("evaluated", evaluated).Int("matured", len(matured)).Msg("outcome evaluation pass complete")
	}
	return evaluated, nil
}

func (t *Tracker) evaluate(ctx context.Context, d *domain.ConsensusDecision) error {
	if d.InitialPrice <= 0 {
		return fmt.Errorf("decision has no usable initial price (%f)", d.InitialPrice)
	}

	price, err := t.prices.CurrentPrice(ctx, d.Instrument)
	if err != nil {
		return fmt.Errorf("failed to fetch current price: %w", err)
	}
	if price <= 0 {
		return fmt.Errorf("price source returned non-positive price %f", price)
	}

	realizedReturn := (price - d.InitialPrice) / d.InitialPrice
	correct := Grade(d.Action, realizedReturn, t.neutralBand)

	updated, err := t.decisions.MarkEvaluated(ctx, d.ID, price, realizedReturn, correct, time.Now().UTC())
	if err != nil {
		return err
	}
	if !updated {
		// Someone else evaluated it between the query and the update.
		t.log.Debug().Str("decision_id", d.ID).Msg("decision already evaluated, replay ignored")
		return nil
	}

	t.log.Debug().Str("decision_id", d.ID).Str("action", string(d.Action)).
		Float64("realized_return", realizedReturn).Bool("correct", correct).
		Msg("decision graded")
	return nil
}

// Grade decides whether an action was vindicated by the realized
// return. Directional actions need the market to move beyond the
// neutral band in their direction; HOLD and MAINTAIN are correct when
// the market stayed inside it.
func Grade(action domain.Action, realizedReturn, neutralBand float64) bool {
	switch action {
	case domain.ActionBuy, domain.ActionIncrease, domain.ActionDCA:
		return realizedReturn > neutralBand
	case domain.ActionSell, domain.ActionReduce:
		return realizedReturn < -neutralBand
	case domain.ActionHold, domain.ActionMaintain:
		return realizedReturn >= -neutralBand && realizedReturn <= neutralBand
	default:
		return false
	}
}
