// Package domain contains the core domain models and interfaces.
// This package is pure - it has no infrastructure dependencies and
// every other package may import it.
package domain

import "time"

// Action is the extended recommendation vocabulary shared by all agents.
type Action string

const (
	ActionBuy      Action = "BUY"
	ActionSell     Action = "SELL"
	ActionHold     Action = "HOLD"
	ActionMaintain Action = "MAINTAIN"
	ActionReduce   Action = "REDUCE"
	ActionIncrease Action = "INCREASE"
	ActionDCA      Action = "DCA"
)

// AllActions lists the full vocabulary in lexicographic order.
// Consensus scoring iterates this slice so score maps are built the same
// way on every cycle regardless of vote arrival order.
var AllActions = []Action{
	ActionBuy,
	ActionDCA,
	ActionHold,
	ActionIncrease,
	ActionMaintain,
	ActionReduce,
	ActionSell,
}

// IsValid reports whether a is part of the vocabulary.
func (a Action) IsValid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionMaintain, ActionReduce, ActionIncrease, ActionDCA:
		return true
	}
	return false
}

// ExecutionSide is the primitive the broker understands.
type ExecutionSide string

const (
	SideBuy  ExecutionSide = "BUY"
	SideSell ExecutionSide = "SELL"
	SideNone ExecutionSide = "NONE"
)

// DecisionStatus tracks a decision through its lifecycle.
type DecisionStatus string

const (
	StatusPending   DecisionStatus = "PENDING"
	StatusEvaluated DecisionStatus = "EVALUATED"
)

// Opinion is an agent's raw output before the adapter normalizes it
// into a Vote.
type Opinion struct {
	Action     Action
	Confidence float64
	Rationale  string
}

// Vote is one agent's recommendation for one decision cycle.
// Immutable once produced.
type Vote struct {
	Agent      string  `json:"agent"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	Weight     float64 `json:"weight"`     // Learned weight at vote time
	BaseShare  float64 `json:"base_share"` // Constitutional share at vote time
}

// Contribution returns the vote's contribution to its action's score.
func (v Vote) Contribution() float64 {
	return v.Weight * v.BaseShare * v.Confidence
}

// ConsensusDecision is the engine's output for one (instrument, cycle).
// Appended to the decision log as PENDING; transitions to EVALUATED
// exactly once and is never mutated afterwards.
type ConsensusDecision struct {
	ID             string             `json:"id"`
	Instrument     string             `json:"instrument"`
	CreatedAt      time.Time          `json:"created_at"`
	Votes          []Vote             `json:"votes"`
	Scores         map[Action]float64 `json:"scores"`
	Action         Action             `json:"action"`
	Confidence     float64            `json:"confidence"`
	InitialPrice   float64            `json:"initial_price"`
	Status         DecisionStatus     `json:"status"`
	RealizedPrice  float64            `json:"realized_price,omitempty"`
	RealizedReturn float64            `json:"realized_return,omitempty"`
	Correct        *bool              `json:"correct,omitempty"`
	EvaluatedAt    *time.Time         `json:"evaluated_at,omitempty"`
}

// ExecutionInstruction is the single order primitive the core emits.
type ExecutionInstruction struct {
	DecisionID     string        `json:"decision_id"`
	Instrument     string        `json:"instrument"`
	Side           ExecutionSide `json:"side"`
	SizeMultiplier float64       `json:"size_multiplier"`
	Action         Action        `json:"action"`
	Confidence     float64       `json:"confidence"`
}

// AgentPerformance is the trailing-window view over the decision log for
// one agent. It is recomputed from the log on every learning cycle and
// never persisted as a source of truth.
type AgentPerformance struct {
	Agent         string
	TotalVotes    int
	CorrectVotes  int
	Accuracy      float64
	AvgConfidence float64
	AvgReturn     float64
	ConfidenceGap float64 // AvgConfidence - Accuracy
	// Outcomes in window order (oldest first), for the walk-forward gate.
	Outcomes []bool
}

// AgentWeightRecord is the committed weight state for one agent.
type AgentWeightRecord struct {
	Agent         string    `json:"agent"`
	Weight        float64   `json:"weight"`
	Accuracy      float64   `json:"accuracy"`
	AvgConfidence float64   `json:"avg_confidence"`
	ConfidenceGap float64   `json:"confidence_gap"`
	Reason        string    `json:"reason"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GateResult is the recorded outcome of the three validation gates for
// one proposed per-agent update. All three must pass for the update to
// commit; failures are recorded, never silently dropped.
type GateResult struct {
	Agent            string    `json:"agent"`
	CycleDate        string    `json:"cycle_date"`
	SignificancePass bool      `json:"significance_pass"`
	PValue           float64   `json:"p_value"`
	WalkForwardPass  bool      `json:"walkforward_pass"`
	OOSAccuracy      float64   `json:"oos_accuracy"`
	CrossAgentPass   bool      `json:"crossagent_pass"`
	PeerDelta        float64   `json:"peer_delta"`
	Committed        bool      `json:"committed"`
	CreatedAt        time.Time `json:"created_at"`
}

// Passed reports whether all three gates approved the update.
func (g GateResult) Passed() bool {
	return g.SignificancePass && g.WalkForwardPass && g.CrossAgentPass
}

// CycleState is the learning scheduler's per-cycle state machine.
type CycleState string

const (
	CycleIdle      CycleState = "IDLE"
	CycleRunning   CycleState = "RUNNING"
	CycleCommitted CycleState = "COMMITTED"
	CycleFailed    CycleState = "FAILED"
)
