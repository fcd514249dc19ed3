package agents

import (
	"context"
	"fmt"

	"github.com/mkosta/warroom/internal/domain"
)

// NewsAgent converts the snapshot's pre-scored news sentiment into a
// vote. Scoring the articles themselves is an external collaborator's
// job; this agent only interprets the aggregate.
type NewsAgent struct{}

// NewNewsAgent creates the news-sentiment agent.
func NewNewsAgent() *NewsAgent {
	return &NewsAgent{}
}

// Name implements domain.Advisor.
func (a *NewsAgent) Name() string { return "news" }

// Analyze maps the aggregate news score in [-1, 1] onto the vocabulary.
func (a *NewsAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	news := snapshot.News
	if news.Volume == 0 {
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  "no scored news in snapshot",
		}, nil
	}

	score := news.Score
	switch {
	case score > 0.6:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: minFloat(0.85, 0.70+(score-0.6)*0.5),
			Rationale:  fmt.Sprintf("strongly positive coverage (%.2f over %d items)", score, news.Volume),
		}, nil
	case score > 0.3:
		return domain.Opinion{
			Action:     domain.ActionBuy,
			Confidence: 0.72,
			Rationale:  fmt.Sprintf("positive coverage (%.2f)", score),
		}, nil
	case score < -0.6:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: minFloat(0.85, 0.70+(-score-0.6)*0.5),
			Rationale:  fmt.Sprintf("strongly negative coverage (%.2f over %d items)", score, news.Volume),
		}, nil
	case score < -0.3:
		return domain.Opinion{
			Action:     domain.ActionSell,
			Confidence: 0.72,
			Rationale:  fmt.Sprintf("negative coverage (%.2f)", score),
		}, nil
	default:
		return domain.Opinion{
			Action:     domain.ActionHold,
			Confidence: 0.60,
			Rationale:  fmt.Sprintf("mixed coverage (%.2f)", score),
		}, nil
	}
}
