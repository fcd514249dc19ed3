// Package agents contains the advisory panel: eight independent agents
// behind one capability contract, plus the adapter that normalizes their
// output into canonical votes.
package agents

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
)

// Base vote shares per agent. These are constitutional constants: they
// always sum to 1.0 across the panel and are never renormalized. The
// learned weight scales an agent's confidence contribution on top of
// its share.
const (
	ShareRisk          = 0.20
	ShareTrader        = 0.15
	ShareAnalyst       = 0.15
	ShareChipWar       = 0.12
	ShareNews          = 0.10
	ShareMacro         = 0.10
	ShareInstitutional = 0.10
	ShareSentiment     = 0.08
)

// Member pairs an advisor with its constitutional share.
type Member struct {
	Advisor   domain.Advisor
	BaseShare float64
}

// Panel is the fixed set of advisory agents.
type Panel struct {
	members []Member
	timeout time.Duration
	log     zerolog.Logger
}

// NewPanel builds the full eight-agent panel. It returns an error if the
// base shares do not sum to 1.0 - a misconfigured panel is a fatal
// configuration error, never silently accepted.
func NewPanel(agentTimeout time.Duration, log zerolog.Logger) (*Panel, error) {
	members := []Member{
		{Advisor: NewRiskAgent(), BaseShare: ShareRisk},
		{Advisor: NewTraderAgent(), BaseShare: ShareTrader},
		{Advisor: NewAnalystAgent(), BaseShare: ShareAnalyst},
		{Advisor: NewChipWarAgent(), BaseShare: ShareChipWar},
		{Advisor: NewNewsAgent(), BaseShare: ShareNews},
		{Advisor: NewMacroAgent(), BaseShare: ShareMacro},
		{Advisor: NewInstitutionalAgent(), BaseShare: ShareInstitutional},
		{Advisor: NewSentimentAgent(), BaseShare: ShareSentiment},
	}

	total := 0.0
	for _, m := range members {
		total += m.BaseShare
	}
	if math.Abs(total-1.0) > 1e-9 {
		return nil, fmt.Errorf("panel base shares must sum to 1.0, got %f", total)
	}

	return &Panel{
		members: members,
		timeout: agentTimeout,
		log:     log.With().Str("component", "panel").Logger(),
	}, nil
}

// Members returns the panel members in registration order.
func (p *Panel) Members() []Member {
	return p.members
}

// Names returns the agent identifiers in registration order.
func (p *Panel) Names() []string {
	names := make([]string, len(p.members))
	for i, m := range p.members {
		names[i] = m.Advisor.Name()
	}
	return names
}

// Size returns the number of agents on the panel.
func (p *Panel) Size() int {
	return len(p.members)
}

// BaseShare returns the constitutional share for an agent, or an error
// for an agent outside the fixed panel.
func (p *Panel) BaseShare(agent string) (float64, error) {
	for _, m := range p.members {
		if m.Advisor.Name() == agent {
			return m.BaseShare, nil
		}
	}
	return 0, fmt.Errorf("agent %q is not part of the fixed panel", agent)
}

// clampConfidence bounds a confidence value to [0, 1].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
