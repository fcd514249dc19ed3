package learning

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/domain"
)

// WeightRepository persists committed agent weights and the learning
// audit trail (gate verdicts, cycle states) in the weights database.
type WeightRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWeightRepository creates a repository over the weights database.
func NewWeightRepository(db *database.DB, log zerolog.Logger) *WeightRepository {
	return &WeightRepository{
		db:  db,
		log: log.With().Str("repository", "weights").Logger(),
	}
}

// CurrentWeights returns the committed weight per agent. Agents that
// have never had an approved update are simply absent; the consensus
// engine defaults them to 1.0.
func (r *WeightRepository) CurrentWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `SELECT agent, weight FROM agent_weights`)
	if err != nil {
		return nil, fmt.Errorf("failed to query weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var agent string
		var weight float64
		if err := rows.Scan(&agent, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan weight row: %w", err)
		}
		weights[agent] = weight
	}
	return weights, rows.Err()
}

// GetAll returns the full committed weight records, one per agent.
func (r *WeightRepository) GetAll(ctx context.Context) ([]domain.AgentWeightRecord, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT agent, weight, accuracy, avg_confidence, confidence_gap, reason, updated_at
		FROM agent_weights ORDER BY agent ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query weight records: %w", err)
	}
	defer rows.Close()

	var records []domain.AgentWeightRecord
	for rows.Next() {
		var rec domain.AgentWeightRecord
		var updatedAt int64
		if err := rows.Scan(&rec.Agent, &rec.Weight, &rec.Accuracy, &rec.AvgConfidence,
			&rec.ConfidenceGap, &rec.Reason, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weight record: %w", err)
		}
		rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Upsert commits a weight record, overwriting the agent's previous one.
// One atomic statement per agent key keeps the single-writer-per-agent
// invariant trivial even with learning jobs running concurrently.
func (r *WeightRepository) Upsert(ctx context.Context, rec domain.AgentWeightRecord) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO agent_weights (agent, weight, accuracy, avg_confidence, confidence_gap, reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent) DO UPDATE SET
			weight = excluded.weight,
			accuracy = excluded.accuracy,
			avg_confidence = excluded.avg_confidence,
			confidence_gap = excluded.confidence_gap,
			reason = excluded.reason,
			updated_at = excluded.updated_at`,
		rec.Agent, rec.Weight, rec.Accuracy, rec.AvgConfidence, rec.ConfidenceGap,
		rec.Reason, rec.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert weight for %s: %w", rec.Agent, err)
	}
	return nil
}

// LowPerformers returns agents whose committed accuracy is below the
// low-performer threshold.
func (r *WeightRepository) LowPerformers(ctx context.Context) ([]string, error) {
	return r.agentsWhere(ctx, `accuracy < ?`, LowPerformerThreshold)
}

// Overconfident returns agents whose committed confidence gap exceeds
// the overconfidence flag.
func (r *WeightRepository) Overconfident(ctx context.Context) ([]string, error) {
	return r.agentsWhere(ctx, `confidence_gap > ?`, OverconfidenceFlag)
}

func (r *WeightRepository) agentsWhere(ctx context.Context, cond string, arg interface{}) ([]string, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT agent FROM agent_weights WHERE `+cond+` ORDER BY agent ASC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var agent string
		if err := rows.Scan(&agent); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// RecordGateResult stores a gate verdict. The (agent, cycle_date) key
// makes a retried job overwrite its own earlier verdict rather than
// duplicate it.
func (r *WeightRepository) RecordGateResult(ctx context.Context, g domain.GateResult) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO gate_results (agent, cycle_date, significance_pass, p_value, walkforward_pass,
		                          oos_accuracy, crossagent_pass, peer_delta, committed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent, cycle_date) DO UPDATE SET
			significance_pass = excluded.significance_pass,
			p_value = excluded.p_value,
			walkforward_pass = excluded.walkforward_pass,
			oos_accuracy = excluded.oos_accuracy,
			crossagent_pass = excluded.crossagent_pass,
			peer_delta = excluded.peer_delta,
			committed = excluded.committed,
			created_at = excluded.created_at`,
		g.Agent, g.CycleDate, boolInt(g.SignificancePass), g.PValue, boolInt(g.WalkForwardPass),
		g.OOSAccuracy, boolInt(g.CrossAgentPass), g.PeerDelta, boolInt(g.Committed), g.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record gate result for %s: %w", g.Agent, err)
	}
	return nil
}

// GateResults returns the recorded verdicts for one cycle date.
func (r *WeightRepository) GateResults(ctx context.Context, cycleDate string) ([]domain.GateResult, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT agent, cycle_date, significance_pass, p_value, walkforward_pass,
		       oos_accuracy, crossagent_pass, peer_delta, committed, created_at
		FROM gate_results WHERE cycle_date = ? ORDER BY agent ASC`, cycleDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query gate results: %w", err)
	}
	defer rows.Close()

	var results []domain.GateResult
	for rows.Next() {
		var g domain.GateResult
		var sig, wf, ca, committed int
		var createdAt int64
		if err := rows.Scan(&g.Agent, &g.CycleDate, &sig, &g.PValue, &wf,
			&g.OOSAccuracy, &ca, &g.PeerDelta, &committed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan gate result: %w", err)
		}
		g.SignificancePass = sig == 1
		g.WalkForwardPass = wf == 1
		g.CrossAgentPass = ca == 1
		g.Committed = committed == 1
		g.CreatedAt = time.Unix(createdAt, 0).UTC()
		results = append(results, g)
	}
	return results, rows.Err()
}

// StartCycle records a learning cycle entering RUNNING.
func (r *WeightRepository) StartCycle(ctx context.Context, cycleDate string, at time.Time) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO learning_cycles (cycle_date, state, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(cycle_date) DO UPDATE SET
			state = excluded.state,
			started_at = excluded.started_at`,
		cycleDate, string(domain.CycleRunning), at.Unix())
	if err != nil {
		return fmt.Errorf("failed to start cycle %s: %w", cycleDate, err)
	}
	return nil
}

// FinishCycle records a learning cycle's terminal state and tallies.
func (r *WeightRepository) FinishCycle(ctx context.Context, cycleDate string, state domain.CycleState, committed, failed int, at time.Time) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		UPDATE learning_cycles
		SET state = ?, finished_at = ?, agents_committed = ?, agents_failed = ?
		WHERE cycle_date = ?`,
		string(state), at.Unix(), committed, failed, cycleDate)
	if err != nil {
		return fmt.Errorf("failed to finish cycle %s: %w", cycleDate, err)
	}
	return nil
}

// CycleState returns the recorded state of one learning cycle, or
// IDLE when the cycle has never started.
func (r *WeightRepository) CycleState(ctx context.Context, cycleDate string) (domain.CycleState, error) {
	var state string
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT state FROM learning_cycles WHERE cycle_date = ?`, cycleDate).Scan(&state)
	if err == sql.ErrNoRows {
		return domain.CycleIdle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cycle state for %s: %w", cycleDate, err)
	}
	return domain.CycleState(state), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
