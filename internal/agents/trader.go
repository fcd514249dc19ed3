package agents

import (
	"context"
	"fmt"

	talib "github.com/markcheno/go-talib"

	"github.com/mkosta/warroom/internal/domain"
)

// minTraderHistory is the shortest price history the technical rules can
// work with (50-period SMA plus indicator warm-up).
const minTraderHistory = 60

// TraderAgent reads price action: momentum, trend alignment and volume.
type TraderAgent struct{}

// NewTraderAgent creates the technical-analysis agent.
func NewTraderAgent() *TraderAgent {
	return &TraderAgent{}
}

// Name implements domain.Advisor.
func (a *TraderAgent) Name() string { return "trader" }

// Analyze derives a directional opinion from RSI, moving-average trend
// and volume confirmation over the snapshot's daily closes.
func (a *TraderAgent) Analyze(_ context.Context, snapshot *domain.ContextSnapshot) (domain.Opinion, error) {
	closes := snapshot.Market.PriceHistory
	if len(closes) < minTraderHistory {
		// Not enough history to compute indicators: no signal, abstain.
		return domain.Opinion{
			Action:     domain.ActionMaintain,
			Confidence: 0.0,
			Rationale:  fmt.Sprintf("insufficient price history (%d bars)", len(closes)),
		}, nil
	}

	price := snapshot.Market.CurrentPrice
	if price <= 0 {
		price = closes[len(closes)-1]
	}

	rsi := last(talib.Rsi(closes, 14))
	sma20 := last(talib.Sma(closes, 20))
	sma50 := last(talib.Sma(closes, 50))
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	macdHist := last(hist)

	volumeRatio := 1.0
	if snapshot.Market.AvgVolume30D > 0 {
		volumeRatio = snapshot.Market.Volume / snapshot.Market.AvgVolume30D
	}

	action := domain.ActionHold
	confidence := 0.5
	rationale := "no dominant technical signal"

	switch {
	case rsi < 30 && price > sma50:
		// Oversold inside an intact longer trend.
		action = domain.ActionBuy
		confidence = 0.85
		rationale = fmt.Sprintf("oversold (RSI %.1f) above 50-day average", rsi)
	case rsi > 70 && price < sma20:
		action = domain.ActionSell
		confidence = 0.80
		rationale = fmt.Sprintf("overbought (RSI %.1f) losing short-term support", rsi)
	case price > sma20 && sma20 > sma50 && macdHist > 0:
		action = domain.ActionBuy
		confidence = 0.75
		rationale = "aligned uptrend with positive momentum"
	case price < sma20 && sma20 < sma50 && macdHist < 0:
		action = domain.ActionSell
		confidence = 0.75
		rationale = "aligned downtrend with negative momentum"
	case rsi < 40 && sma20 > sma50:
		action = domain.ActionDCA
		confidence = 0.65
		rationale = fmt.Sprintf("pullback (RSI %.1f) within uptrend", rsi)
	}

	// Volume confirmation: a surge backs the signal, a drought weakens it.
	if action != domain.ActionHold {
		if volumeRatio > 1.5 {
			confidence = minFloat(0.95, confidence+0.05)
		} else if volumeRatio < 0.5 {
			confidence -= 0.10
		}
	}

	return domain.Opinion{
		Action:     action,
		Confidence: clampConfidence(confidence),
		Rationale:  rationale,
	}, nil
}

// last returns the final element of a talib output series, or 0 when the
// series is empty.
func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
