package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkosta/warroom/internal/agents"
	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/metrics"
	"github.com/mkosta/warroom/internal/modules/consensus"
	"github.com/mkosta/warroom/internal/modules/learning"
	"github.com/mkosta/warroom/internal/modules/outcome"
)

type staticPrices float64

func (p staticPrices) CurrentPrice(ctx context.Context, _ string) (float64, error) {
	return float64(p), nil
}

type staticSnapshots struct{}

func (staticSnapshots) Snapshot(_ context.Context, instrument string) (*domain.ContextSnapshot, error) {
	return &domain.ContextSnapshot{
		Instrument: instrument,
		Timestamp:  time.Now().UTC(),
		Market:     domain.MarketIndicators{CurrentPrice: 100.0},
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	open := func(name string, profile database.DatabaseProfile) *database.DB {
		db, err := database.New(database.Config{
			Path:    filepath.Join(t.TempDir(), name+".db"),
			Profile: profile,
			Name:    name,
		})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		t.Cleanup(func() { _ = db.Close() })
		return db
	}

	decisionsDB := open("decisions", database.ProfileLedger)
	weightsDB := open("weights", database.ProfileStandard)
	snapshotsDB := open("snapshots", database.ProfileCache)

	panel, err := agents.NewPanel(time.Second, zerolog.Nop())
	require.NoError(t, err)

	decisionRepo := consensus.NewDecisionRepository(decisionsDB, zerolog.Nop())
	weightRepo := learning.NewWeightRepository(weightsDB, zerolog.Nop())
	engine := consensus.NewEngine(panel, weightRepo, decisionRepo, 5*time.Second, zerolog.Nop())
	tracker := outcome.NewTracker(decisionRepo, staticPrices(104.0), 24*time.Hour, 0.005, zerolog.Nop())
	learningService := learning.NewService(decisionRepo, weightRepo, panel.Names(), 30*24*time.Hour, 0.005, zerolog.Nop())

	return New(Config{
		Log:         zerolog.Nop(),
		Port:        0,
		DevMode:     true,
		DataDir:     t.TempDir(),
		DecisionsDB: decisionsDB,
		WeightsDB:   weightsDB,
		SnapshotsDB: snapshotsDB,
		Engine:      engine,
		Decisions:   decisionRepo,
		Tracker:     tracker,
		Learning:    learningService,
		Snapshots:   staticSnapshots{},
		Metrics:     metrics.New(),
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestDecideAndListDecisions(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/consensus/decide", decideRequest{Instrument: "AAPL"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var decision domain.ConsensusDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, "AAPL", decision.Instrument)
	assert.Equal(t, domain.StatusPending, decision.Status)
	assert.Len(t, decision.Votes, 8)

	rec = doJSON(t, s, http.MethodGet, "/api/decisions/?instrument=AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []domain.ConsensusDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, decision.ID, listed[0].ID)

	rec = doJSON(t, s, http.MethodGet, "/api/decisions/"+decision.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecideRequiresInstrument(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/consensus/decide", decideRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateSingleDecision(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/consensus/decide", decideRequest{
		Instrument: "AAPL",
		Snapshot: &domain.ContextSnapshot{
			Market: domain.MarketIndicators{CurrentPrice: 100.0},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var decision domain.ConsensusDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))

	rec = doJSON(t, s, http.MethodPost, "/api/outcomes/evaluate", evaluateRequest{
		DecisionID:    decision.ID,
		RealizedPrice: 104.0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var evaluated domain.ConsensusDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evaluated))
	assert.Equal(t, domain.StatusEvaluated, evaluated.Status)
	assert.InDelta(t, 0.04, evaluated.RealizedReturn, 1e-9)

	// Replay with a different price: idempotent, first verdict stands.
	rec = doJSON(t, s, http.MethodPost, "/api/outcomes/evaluate", evaluateRequest{
		DecisionID:    decision.ID,
		RealizedPrice: 50.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evaluated))
	assert.InDelta(t, 0.04, evaluated.RealizedReturn, 1e-9)
}

func TestEvaluateRejectsNonPositivePrice(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/consensus/decide", decideRequest{
		Instrument: "AAPL",
		Snapshot: &domain.ContextSnapshot{
			Market: domain.MarketIndicators{CurrentPrice: 100.0},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var decision domain.ConsensusDecision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))

	rec = doJSON(t, s, http.MethodPost, "/api/outcomes/evaluate", evaluateRequest{
		DecisionID: decision.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "a missing realized price must not pass silently")

	rec = doJSON(t, s, http.MethodPost, "/api/outcomes/evaluate", evaluateRequest{
		DecisionID:    decision.ID,
		RealizedPrice: -4.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The decision is untouched and still gradeable.
	rec = doJSON(t, s, http.MethodGet, "/api/decisions/"+decision.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, domain.StatusPending, decision.Status)
}

func TestWeightsEndpointsDefaultState(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/weights/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state map[string]domain.AgentWeightRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Len(t, state, 8)
	assert.Equal(t, 1.0, state["risk"].Weight)
	assert.Equal(t, "default", state["risk"].Reason)

	rec = doJSON(t, s, http.MethodGet, "/api/weights/low-performers", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/weights/overconfident", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdjustWeightsWithoutHistory(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/weights/adjust", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state map[string]domain.AgentWeightRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Len(t, state, 8)
	for _, rec := range state {
		assert.Equal(t, 1.0, rec.Weight, "no graded history, every weight stays at the default")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
