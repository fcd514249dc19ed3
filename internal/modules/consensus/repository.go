package consensus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/domain"
)

// DecisionRepository persists decisions and their votes in the
// append-only decision log. Decisions are inserted as PENDING and
// updated exactly once when evaluated; nothing is ever deleted.
type DecisionRepository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDecisionRepository creates a repository over the decisions database.
func NewDecisionRepository(db *database.DB, log zerolog.Logger) *DecisionRepository {
	return &DecisionRepository{
		db:  db,
		log: log.With().Str("repository", "decisions").Logger(),
	}
}

// Save appends a decision and its full vote set atomically.
func (r *DecisionRepository) Save(ctx context.Context, d *domain.ConsensusDecision) error {
	scoresJSON, err := json.Marshal(d.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	return database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO decisions (id, instrument, created_at, action, confidence, scores_json, initial_price, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Instrument, d.CreatedAt.Unix(), string(d.Action), d.Confidence,
			string(scoresJSON), d.InitialPrice, string(d.Status))
		if err != nil {
			return fmt.Errorf("failed to insert decision: %w", err)
		}

		for _, v := range d.Votes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO votes (decision_id, agent, action, confidence, rationale, weight, base_share)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				d.ID, v.Agent, string(v.Action), v.Confidence, v.Rationale, v.Weight, v.BaseShare)
			if err != nil {
				return fmt.Errorf("failed to insert vote for %s: %w", v.Agent, err)
			}
		}
		return nil
	})
}

// GetByID loads one decision with its votes.
func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*domain.ConsensusDecision, error) {
	row := r.db.QueryRow(`
		SELECT id, instrument, created_at, action, confidence, scores_json, initial_price,
		       status, realized_price, realized_return, correct, evaluated_at
		FROM decisions WHERE id = ?`, id)

	d, err := scanDecision(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("decision %s not found", id)
		}
		return nil, err
	}

	votes, err := r.votesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Votes = votes
	return d, nil
}

// List returns the most recent decisions, newest first, optionally
// filtered by instrument. Votes are not loaded; callers that need the
// full vote set use GetByID.
func (r *DecisionRepository) List(ctx context.Context, instrument string, limit int) ([]*domain.ConsensusDecision, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, instrument, created_at, action, confidence, scores_json, initial_price,
		       status, realized_price, realized_return, correct, evaluated_at
		FROM decisions`
	args := []interface{}{}
	if instrument != "" {
		query += ` WHERE instrument = ?`
		args = append(args, instrument)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	return collectDecisions(rows)
}

// PendingMatured returns PENDING decisions created at or before the
// cutoff, oldest first. These are the decisions whose maturation horizon
// has elapsed and which are due for evaluation.
func (r *DecisionRepository) PendingMatured(ctx context.Context, cutoff time.Time) ([]*domain.ConsensusDecision, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT id, instrument, created_at, action, confidence, scores_json, initial_price,
		       status, realized_price, realized_return, correct, evaluated_at
		FROM decisions
		WHERE status = 'PENDING' AND created_at <= ?
		ORDER BY created_at ASC`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query matured decisions: %w", err)
	}
	defer rows.Close()

	return collectDecisions(rows)
}

// MarkEvaluated transitions a decision from PENDING to EVALUATED. The
// status guard in the WHERE clause makes the transition idempotent: a
// decision already evaluated is left untouched and the call reports
// false.
func (r *DecisionRepository) MarkEvaluated(ctx context.Context, id string, realizedPrice, realizedReturn float64, correct bool, at time.Time) (bool, error) {
	correctInt := 0
	if correct {
		correctInt = 1
	}

	res, err := r.db.Conn().ExecContext(ctx, `
		UPDATE decisions
		SET status = 'EVALUATED', realized_price = ?, realized_return = ?, correct = ?, evaluated_at = ?
		WHERE id = ? AND status = 'PENDING'`,
		realizedPrice, realizedReturn, correctInt, at.Unix(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark decision %s evaluated: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// VoteOutcome is one agent vote joined with its decision's realized
// outcome. The learning module grades agents from these rows.
type VoteOutcome struct {
	Agent          string
	Action         domain.Action
	Confidence     float64
	Weight         float64
	RealizedReturn float64
	CreatedAt      time.Time
}

// AgentOutcomes returns an agent's votes on evaluated decisions within
// the trailing window, oldest first. Abstentions are excluded on either
// signature - zero weight (adapter failure) or zero confidence (agent
// declined, e.g. a sector specialist off its universe): a vote that
// contributed nothing cannot be graded.
func (r *DecisionRepository) AgentOutcomes(ctx context.Context, agent string, since time.Time) ([]VoteOutcome, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT v.agent, v.action, v.confidence, v.weight, d.realized_return, d.created_at
		FROM votes v
		JOIN decisions d ON d.id = v.decision_id
		WHERE v.agent = ? AND d.status = 'EVALUATED' AND d.created_at >= ?
		  AND v.weight > 0 AND v.confidence > 0
		ORDER BY d.created_at ASC`, agent, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes for %s: %w", agent, err)
	}
	defer rows.Close()

	var outcomes []VoteOutcome
	for rows.Next() {
		var o VoteOutcome
		var action string
		var createdAt int64
		if err := rows.Scan(&o.Agent, &action, &o.Confidence, &o.Weight, &o.RealizedReturn, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote outcome: %w", err)
		}
		o.Action = domain.Action(action)
		o.CreatedAt = time.Unix(createdAt, 0).UTC()
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// RecordExecution stores the instruction emitted for a decision.
func (r *DecisionRepository) RecordExecution(ctx context.Context, instr domain.ExecutionInstruction, at time.Time) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO executions (decision_id, instrument, side, multiplier, confidence, status, created_at)
		VALUES (?, ?, ?, ?, ?, 'SENT', ?)`,
		instr.DecisionID, instr.Instrument, string(instr.Side), instr.SizeMultiplier, instr.Confidence, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to record execution for %s: %w", instr.DecisionID, err)
	}
	return nil
}

// AckExecution marks a previously sent instruction as acknowledged by
// the broker gateway.
func (r *DecisionRepository) AckExecution(ctx context.Context, decisionID string, at time.Time) error {
	_, err := r.db.Conn().ExecContext(ctx, `
		UPDATE executions SET status = 'ACKED', ack_at = ? WHERE decision_id = ?`,
		at.Unix(), decisionID)
	if err != nil {
		return fmt.Errorf("failed to ack execution for %s: %w", decisionID, err)
	}
	return nil
}

func (r *DecisionRepository) votesFor(ctx context.Context, decisionID string) ([]domain.Vote, error) {
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT agent, action, confidence, rationale, weight, base_share
		FROM votes WHERE decision_id = ? ORDER BY agent ASC`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		var action string
		if err := rows.Scan(&v.Agent, &action, &v.Confidence, &v.Rationale, &v.Weight, &v.BaseShare); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.Action = domain.Action(action)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (*domain.ConsensusDecision, error) {
	var d domain.ConsensusDecision
	var action, status, scoresJSON string
	var createdAt int64
	var realizedPrice, realizedReturn sql.NullFloat64
	var correct sql.NullInt64
	var evaluatedAt sql.NullInt64

	err := row.Scan(&d.ID, &d.Instrument, &createdAt, &action, &d.Confidence, &scoresJSON,
		&d.InitialPrice, &status, &realizedPrice, &realizedReturn, &correct, &evaluatedAt)
	if err != nil {
		return nil, err
	}

	d.Action = domain.Action(action)
	d.Status = domain.DecisionStatus(status)
	d.CreatedAt = time.Unix(createdAt, 0).UTC()

	if err := json.Unmarshal([]byte(scoresJSON), &d.Scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores for %s: %w", d.ID, err)
	}

	if realizedPrice.Valid {
		d.RealizedPrice = realizedPrice.Float64
	}
	if realizedReturn.Valid {
		d.RealizedReturn = realizedReturn.Float64
	}
	if correct.Valid {
		c := correct.Int64 == 1
		d.Correct = &c
	}
	if evaluatedAt.Valid {
		t := time.Unix(evaluatedAt.Int64, 0).UTC()
		d.EvaluatedAt = &t
	}
	return &d, nil
}

func collectDecisions(rows *sql.Rows) ([]*domain.ConsensusDecision, error) {
	var decisions []*domain.ConsensusDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
