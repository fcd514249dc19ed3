package learning

import "github.com/mkosta/warroom/internal/domain"

const (
	// WeightFloor and WeightCeiling bound every committed weight. The
	// bounds keep a single agent from dominating or vanishing from the
	// panel regardless of its streak.
	WeightFloor   = 0.5
	WeightCeiling = 1.2

	// confidence-gap correction thresholds and caps
	gapThreshold          = 0.15
	overconfidencePenalty = 0.20
	underconfidenceBonus  = 0.10

	// OverconfidenceFlag is the gap above which an agent is surfaced on
	// the overconfident administrative view.
	OverconfidenceFlag = 0.20

	// LowPerformerThreshold is the accuracy below which an agent is
	// surfaced on the low-performer administrative view.
	LowPerformerThreshold = 0.50
)

// ProposeWeight maps an approved performance view to a weight and a
// human-readable reason. Accuracy picks the tier; the confidence gap
// applies a correction on top; the result is clamped to
// [WeightFloor, WeightCeiling].
func ProposeWeight(perf domain.AgentPerformance) (float64, string) {
	var weight float64
	var reason string

	switch {
	case perf.Accuracy >= 0.70:
		weight, reason = 1.2, "strong_performer"
	case perf.Accuracy >= 0.60:
		weight, reason = 1.0, "average_performer"
	case perf.Accuracy >= 0.50:
		weight, reason = 0.8, "weak_performer"
	default:
		weight, reason = 0.5, "poor_performer"
	}

	gap := perf.ConfidenceGap
	if gap >= gapThreshold {
		// Overconfident: penalty grows with the excess, capped at -20%.
		penalty := gap - gapThreshold
		if penalty > overconfidencePenalty {
			penalty = overconfidencePenalty
		}
		weight -= penalty
		reason += ",overconfidence_penalty"
	} else if -gap >= gapThreshold {
		// Underconfident but accurate: modest bonus, capped at +10%.
		bonus := -gap - gapThreshold
		if bonus > underconfidenceBonus {
			bonus = underconfidenceBonus
		}
		weight += bonus
		reason += ",underconfidence_bonus"
	}

	if weight < WeightFloor {
		weight = WeightFloor
	}
	if weight > WeightCeiling {
		weight = WeightCeiling
	}
	return weight, reason
}
