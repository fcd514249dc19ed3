package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// minSocialVolume is the minimum number of scored social posts for the
// aggregate to mean anything.
const minSocialVolume = 10

// SentimentAgent interprets crowd positioning from pre-scored social
// sentiment. It is deliberately contrarian at the extremes: euphoric
// crowds get a smaller boost than the raw score suggests.
type SentimentAgent struct{}

// NewSentimentAgent creates the social-sentiment agent.
func NewSentimentAgent() *SentimentAgent {
	return &SentimentAgent{}
}

// Name implements domain.Advisor.
func (a *SentimentAgent) Name() string { return "sentiment" }

// Analyze maps the aggregate social score in [-1, 1] onto the vocabulary.
func (a *SentimentAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	social := snapshot.Social
	if social.Volume < minSocialVolume {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  fmt.Sprintf("social volume too thin (%d posts)", social.Volume),
		}, nil
	}

	score := social.Score
	switch {
	case score > 0.8:
		// Euphoria is a crowding risk, not a buy signal.
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.65,
			Rationale:  fmt.Sprintf("euphoric crowd (%.2f), crowding risk", score),
		}, nil
	case score > 0.4:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.72,
			Rationale:  fmt.Sprintf("bullish crowd (%.2f over %d posts)", score, social.Volume),
		}, nil
	case score < -0.7:
		// Capitulation-level negativity with no other signal: average in.
		return domain.Opinion{
			Action:     domain.ActionDCA,
			Confidence: 0.62,
			Rationale:  fmt.Sprintf("capitulation sentiment (%.2f)", score),
		}, nil
	case score < -0.4:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.70,
			Rationale:  fmt.Sprintf("bearish crowd (%.2f)", score),
		}, nil
	default:
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.55,
			Rationale:  fmt.Sprintf("neutral crowd (%.2f)", score),
		}, nil
	}
}
