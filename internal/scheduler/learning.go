// Package scheduler drives the engine's two rhythms: the frequent
// trading cycle and the daily learning cycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/metrics"
	"github.com/mkosta/warroom/internal/modules/learning"
)

const maxJobAttempts = 3

// jobBackoffs are the waits before the second and third attempt of a
// failed learning job.
var jobBackoffs = []time.Duration{5 * time.Minute, 10 * time.Minute, 15 * time.Minute}

// LearningService is the slice of the learning module the scheduler
// drives.
type LearningService interface {
	Agents() []string
	Weights() *learning.WeightRepository
	PanelPerformances(ctx context.Context) (map[string]domain.AgentPerformance, float64, error)
	LearnAgent(ctx context.Context, perf domain.AgentPerformance, peerMean float64, cycleDate string) (domain.GateResult, error)
}

// LearningScheduler fires the daily learning cycle at a fixed UTC
// instant and runs the per-agent jobs with bounded retries. It keeps no
// durable cycle state of its own: after a crash it simply resumes at
// the next scheduled instant, never replaying a partial cycle.
type LearningScheduler struct {
	service  LearningService
	schedule string
	cron     *cron.Cron
	metrics  *metrics.Metrics
	log      zerolog.Logger

	// sleep is replaceable so retry backoff is testable without
	// multi-minute waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLearningScheduler creates the scheduler. schedule is a cron
// expression evaluated in UTC.
func NewLearningScheduler(service LearningService, schedule string, m *metrics.Metrics, log zerolog.Logger) *LearningScheduler {
	return &LearningScheduler{
		service:  service,
		schedule: schedule,
		metrics:  m,
		log:      log.With().Str("component", "learning_scheduler").Logger(),
		sleep:    sleepCtx,
	}
}

// Start registers the cron entry and begins firing.
func (s *LearningScheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithLocation(time.UTC))
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid learning schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("learning scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running cycle to finish.
func (s *LearningScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunCycle executes one full learning cycle: recompute the panel's
// performance, then run every agent's job. Jobs are independent and run
// concurrently; each writes only its own agent's weight record.
func (s *LearningScheduler) RunCycle(ctx context.Context) {
	cycleDate := time.Now().UTC().Format("2006-01-02")
	started := time.Now()
	s.log.Info().Str("cycle", cycleDate).Msg("learning cycle starting")

	if err := s.service.Weights().StartCycle(ctx, cycleDate, started.UTC()); err != nil {
		s.log.Error().Err(err).Str("cycle", cycleDate).Msg("failed to record cycle start")
		return
	}

	perfs, peerMean, err := s.service.PanelPerformances(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("cycle", cycleDate).Msg("failed to compute panel performance, cycle failed")
		s.finish(ctx, cycleDate, domain.CycleFailed, 0, len(s.service.Agents()))
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed, failed := 0, 0

	for _, agent := range s.service.Agents() {
		wg.Add(1)
		go func(agent string) {
			defer wg.Done()
			result, err := s.runJob(ctx, perfs[agent], peerMean, cycleDate)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				s.metrics.LearningOutcomes.WithLabelValues(agent, "failed").Inc()
			case result.Committed:
				committed++
				s.metrics.LearningOutcomes.WithLabelValues(agent, "committed").Inc()
				s.metrics.AgentAccuracy.WithLabelValues(agent).Set(perfs[agent].Accuracy)
			default:
				// Gate rejection is a deliberate no-op, not a failure.
				s.metrics.LearningOutcomes.WithLabelValues(agent, "rejected").Inc()
			}
		}(agent)
	}
	wg.Wait()

	if records, err := s.service.Weights().GetAll(ctx); err == nil {
		for _, rec := range records {
			s.metrics.AgentWeight.WithLabelValues(rec.Agent).Set(rec.Weight)
		}
	}

	state := domain.CycleCommitted
	if failed == len(s.service.Agents()) && failed > 0 {
		state = domain.CycleFailed
	}
	s.finish(ctx, cycleDate, state, committed, failed)

	s.log.Info().Str("cycle", cycleDate).Str("state", string(state)).
		Int("committed", committed).Int("failed", failed).
		Dur("took", time.Since(started)).Msg("learning cycle finished")
}

// runJob runs one agent's learning job with up to three attempts and
// increasing backoff between them. An exhausted job fails only its own
// agent.
func (s *LearningScheduler) runJob(ctx context.Context, perf domain.AgentPerformance, peerMean float64, cycleDate string) (domain.GateResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxJobAttempts; attempt++ {
		result, err := s.service.LearnAgent(ctx, perf, peerMean, cycleDate)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxJobAttempts {
			break
		}
		backoff := jobBackoffs[attempt-1]
		s.log.Warn().Err(err).Str("agent", perf.Agent).Int("attempt", attempt).
			Dur("backoff", backoff).Msg("learning job failed, will retry")
		if err := s.sleep(ctx, backoff); err != nil {
			return domain.GateResult{}, err
		}
	}

	s.log.Error().Err(lastErr).Str("agent", perf.Agent).Int("attempts", maxJobAttempts).
		Msg("learning job exhausted its retries")
	return domain.GateResult{}, lastErr
}

func (s *LearningScheduler) finish(ctx context.Context, cycleDate string, state domain.CycleState, committed, failed int) {
	if err := s.service.Weights().FinishCycle(ctx, cycleDate, state, committed, failed, time.Now().UTC()); err != nil {
		s.log.Error().Err(err).Str("cycle", cycleDate).Msg("failed to record cycle finish")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
