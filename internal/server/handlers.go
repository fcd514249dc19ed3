package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/modules/outcome"
)

// decideRequest asks for one consensus decision. When Snapshot is
// omitted the server fetches a fresh one from the snapshot service.
type decideRequest struct {
	Instrument string                  `json:"instrument"`
	Snapshot   *domain.ContextSnapshot `json:"snapshot,omitempty"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Instrument == "" {
		s.writeError(w, http.StatusBadRequest, "instrument is required")
		return
	}

	snapshot := req.Snapshot
	if snapshot == nil {
		var err error
		snapshot, err = s.cfg.Snapshots.Snapshot(r.Context(), req.Instrument)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "failed to fetch snapshot: "+err.Error())
			return
		}
	} else {
		snapshot.Instrument = req.Instrument
	}

	decision, err := s.cfg.Engine.Decide(r.Context(), snapshot)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

// evaluateRequest grades one decision against a supplied realized
// price. An empty body instead grades everything matured.
type evaluateRequest struct {
	DecisionID    string  `json:"decision_id"`
	RealizedPrice float64 `json:"realized_price"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	// Body is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if req.DecisionID == "" {
		evaluated, err := s.cfg.Tracker.EvaluateMatured(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]int{"evaluated": evaluated})
		return
	}

	result, err := s.evaluateOne(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) evaluateOne(ctx context.Context, req evaluateRequest) (*domain.ConsensusDecision, error) {
	d, err := s.cfg.Decisions.GetByID(ctx, req.DecisionID)
	if err != nil {
		return nil, err
	}

	// Already graded: replays return the committed verdict unchanged.
	if d.Status != domain.StatusPending {
		return d, nil
	}

	if req.RealizedPrice <= 0 {
		return nil, fmt.Errorf("realized_price must be positive to grade decision %s", d.ID)
	}
	if d.InitialPrice <= 0 {
		return nil, fmt.Errorf("decision %s has no usable initial price", d.ID)
	}

	realizedReturn := (req.RealizedPrice - d.InitialPrice) / d.InitialPrice
	correct := outcome.Grade(d.Action, realizedReturn, s.cfg.Tracker.NeutralBand())
	// Idempotent: a lost race against another evaluator is a no-op.
	if _, err := s.cfg.Decisions.MarkEvaluated(ctx, d.ID, req.RealizedPrice, realizedReturn, correct, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.cfg.Decisions.GetByID(ctx, d.ID)
}

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	records, err := s.cfg.Learning.Weights().GetAll(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Agents without a committed record still appear, at the default.
	state := make(map[string]domain.AgentWeightRecord, len(s.cfg.Learning.Agents()))
	for _, agent := range s.cfg.Learning.Agents() {
		state[agent] = domain.AgentWeightRecord{Agent: agent, Weight: 1.0, Reason: "default"}
	}
	for _, rec := range records {
		state[rec.Agent] = rec
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleLowPerformers(w http.ResponseWriter, r *http.Request) {
	agents, err := s.cfg.Learning.Weights().LowPerformers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"agents": agents})
}

func (s *Server) handleOverconfident(w http.ResponseWriter, r *http.Request) {
	agents, err := s.cfg.Learning.Weights().Overconfident(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"agents": agents})
}

func (s *Server) handleAdjustWeights(w http.ResponseWriter, r *http.Request) {
	state, err := s.cfg.Learning.AdjustWeights(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	decisions, err := s.cfg.Decisions.List(r.Context(), r.URL.Query().Get("instrument"), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, decisions)
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	decision, err := s.cfg.Decisions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	checks := map[string]string{}
	for name, db := range map[string]interface {
		HealthCheck(context.Context) error
	}{
		"decisions": s.cfg.DecisionsDB,
		"weights":   s.cfg.WeightsDB,
		"snapshots": s.cfg.SnapshotsDB,
	} {
		if err := db.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	s.writeJSON(w, code, map[string]interface{}{"status": status, "databases": checks})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
