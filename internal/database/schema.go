package database

// schemas maps database names to their embedded schema definitions.
// Every statement is idempotent (IF NOT EXISTS) so Migrate can run on
// every startup.
var schemas = map[string]string{
	"decisions": decisionsSchema,
	"weights":   weightsSchema,
	"snapshots": snapshotsSchema,
}

// decisionsSchema is the append-only decision log (ledger profile).
// Decisions are inserted as PENDING and updated exactly once when
// evaluated; they are never deleted.
const decisionsSchema = `
CREATE TABLE IF NOT EXISTS decisions (
    id              TEXT PRIMARY KEY,
    instrument      TEXT NOT NULL,
    created_at      INTEGER NOT NULL,
    action          TEXT NOT NULL,
    confidence      REAL NOT NULL,
    scores_json     TEXT NOT NULL,
    initial_price   REAL NOT NULL,
    status          TEXT NOT NULL DEFAULT 'PENDING',
    realized_price  REAL,
    realized_return REAL,
    correct         INTEGER,
    evaluated_at    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_decisions_instrument ON decisions(instrument, created_at);
CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions(status, created_at);

CREATE TABLE IF NOT EXISTS votes (
    decision_id TEXT NOT NULL REFERENCES decisions(id),
    agent       TEXT NOT NULL,
    action      TEXT NOT NULL,
    confidence  REAL NOT NULL,
    rationale   TEXT NOT NULL DEFAULT '',
    weight      REAL NOT NULL,
    base_share  REAL NOT NULL,
    PRIMARY KEY (decision_id, agent)
);

CREATE INDEX IF NOT EXISTS idx_votes_agent ON votes(agent);

CREATE TABLE IF NOT EXISTS executions (
    decision_id TEXT PRIMARY KEY REFERENCES decisions(id),
    instrument  TEXT NOT NULL,
    side        TEXT NOT NULL,
    multiplier  REAL NOT NULL,
    confidence  REAL NOT NULL,
    status      TEXT NOT NULL DEFAULT 'SENT',
    created_at  INTEGER NOT NULL,
    ack_at      INTEGER
);
`

// weightsSchema holds current agent weights and the learning audit trail
// (standard profile). agent_weights is overwritten per approved adjustment;
// gate_results and learning_cycles are append-only evidence.
const weightsSchema = `
CREATE TABLE IF NOT EXISTS agent_weights (
    agent          TEXT PRIMARY KEY,
    weight         REAL NOT NULL,
    accuracy       REAL NOT NULL DEFAULT 0,
    avg_confidence REAL NOT NULL DEFAULT 0,
    confidence_gap REAL NOT NULL DEFAULT 0,
    reason         TEXT NOT NULL DEFAULT '',
    updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS gate_results (
    agent             TEXT NOT NULL,
    cycle_date        TEXT NOT NULL,
    significance_pass INTEGER NOT NULL,
    p_value           REAL NOT NULL,
    walkforward_pass  INTEGER NOT NULL,
    oos_accuracy      REAL NOT NULL,
    crossagent_pass   INTEGER NOT NULL,
    peer_delta        REAL NOT NULL,
    committed         INTEGER NOT NULL,
    created_at        INTEGER NOT NULL,
    PRIMARY KEY (agent, cycle_date)
);

CREATE TABLE IF NOT EXISTS learning_cycles (
    cycle_date       TEXT PRIMARY KEY,
    state            TEXT NOT NULL,
    started_at       INTEGER NOT NULL,
    finished_at      INTEGER,
    agents_committed INTEGER NOT NULL DEFAULT 0,
    agents_failed    INTEGER NOT NULL DEFAULT 0
);
`

// snapshotsSchema is the ephemeral context-snapshot cache (cache profile).
const snapshotsSchema = `
CREATE TABLE IF NOT EXISTS snapshot_cache (
    instrument TEXT PRIMARY KEY,
    fetched_at INTEGER NOT NULL,
    payload    BLOB NOT NULL
);
`
