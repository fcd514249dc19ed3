package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
	"github.com/mkosta/warroom/internal/metrics"
	"github.com/mkosta/warroom/internal/modules/consensus"
	"github.com/mkosta/warroom/internal/modules/execution"
	"github.com/mkosta/warroom/internal/modules/outcome"
)

// TradingCycle drives the frequent decision rhythm: every interval it
// fetches a snapshot per instrument, runs the consensus engine,
// forwards the decision to execution and grades whatever has matured.
type TradingCycle struct {
	instruments []string
	interval    time.Duration
	snapshots   domain.SnapshotProvider
	engine      *consensus.Engine
	execution   *execution.Service
	tracker     *outcome.Tracker
	metrics     *metrics.Metrics
	log         zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewTradingCycle creates the trading-cycle runner.
func NewTradingCycle(instruments []string, interval time.Duration, snapshots domain.SnapshotProvider,
	engine *consensus.Engine, exec *execution.Service, tracker *outcome.Tracker,
	m *metrics.Metrics, log zerolog.Logger) *TradingCycle {
	return &TradingCycle{
		instruments: instruments,
		interval:    interval,
		snapshots:   snapshots,
		engine:      engine,
		execution:   exec,
		tracker:     tracker,
		metrics:     m,
		log:         log.With().Str("component", "trading_cycle").Logger(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the cycle loop in its own goroutine.
func (c *TradingCycle) Start(ctx context.Context) {
	go c.run(ctx)
	c.log.Info().Dur("interval", c.interval).Strs("instruments", c.instruments).
		Msg("trading cycle started")
}

// Stop signals the loop to exit and waits for the current pass to
// finish.
func (c *TradingCycle) Stop() {
	close(c.stop)
	<-c.done
}

func (c *TradingCycle) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce executes one full pass over every instrument. Per-instrument
// failures are logged and skipped; one broken instrument never stalls
// the rest of the book.
func (c *TradingCycle) RunOnce(ctx context.Context) {
	started := time.Now()

	for _, instrument := range c.instruments {
		if err := c.runInstrument(ctx, instrument); err != nil {
			c.log.Error().Err(err).Str("instrument", instrument).Msg("instrument pass failed")
		}
	}

	graded, err := c.tracker.EvaluateMatured(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("outcome evaluation pass failed")
	} else if graded > 0 {
		c.metrics.OutcomesGraded.Add(float64(graded))
	}

	c.metrics.CycleDuration.Observe(time.Since(started).Seconds())
}

func (c *TradingCycle) runInstrument(ctx context.Context, instrument string) error {
	snapshot, err := c.snapshots.Snapshot(ctx, instrument)
	if err != nil {
		return err
	}

	decision, err := c.engine.Decide(ctx, snapshot)
	if err != nil {
		return err
	}

	c.metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	for _, v := range decision.Votes {
		c.metrics.VotesCast.WithLabelValues(v.Agent, string(v.Action)).Inc()
	}

	instr, err := c.execution.Process(ctx, decision)
	if err != nil {
		return err
	}
	if instr != nil {
		c.metrics.ExecutionsTotal.WithLabelValues(string(instr.Side)).Inc()
	}
	return nil
}
