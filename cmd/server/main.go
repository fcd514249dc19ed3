// Package main is the entry point for the war-room decision engine: an
// eight-agent advisory panel whose weighted votes become trading
// decisions, graded against realized prices and fed back into agent
// weights through a gated daily learning cycle.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mkosta/warroom/internal/agents"
	"github.com/mkosta/warroom/internal/clients/broker"
	"github.com/mkosta/warroom/internal/clients/snapshots"
	"github.com/mkosta/warroom/internal/config"
	"github.com/mkosta/warroom/internal/database"
	"github.com/mkosta/warroom/internal/metrics"
	"github.com/mkosta/warroom/internal/modules/consensus"
	"github.com/mkosta/warroom/internal/modules/execution"
	"github.com/mkosta/warroom/internal/modules/learning"
	"github.com/mkosta/warroom/internal/modules/outcome"
	"github.com/mkosta/warroom/internal/reliability"
	"github.com/mkosta/warroom/internal/scheduler"
	"github.com/mkosta/warroom/internal/server"
	"github.com/mkosta/warroom/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Strs("instruments", cfg.Instruments).
		Bool("dry_run", cfg.DryRun).
		Msg("Starting war-room decision engine")

	// Three databases, three durability profiles: the decision log is
	// the audit trail, weights are operational state, snapshots are
	// ephemeral cache.
	decisionsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "decisions.db"),
		Profile: database.ProfileLedger,
		Name:    "decisions",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open decisions database")
	}
	defer decisionsDB.Close()

	weightsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "weights.db"),
		Profile: database.ProfileStandard,
		Name:    "weights",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open weights database")
	}
	defer weightsDB.Close()

	snapshotsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "snapshots.db"),
		Profile: database.ProfileCache,
		Name:    "snapshots",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshots database")
	}
	defer snapshotsDB.Close()

	for _, db := range []*database.DB{decisionsDB, weightsDB, snapshotsDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to apply schema")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	// Clients
	snapshotClient := snapshots.NewClient(cfg.SnapshotServiceURL, snapshotsDB, cfg.TradingInterval/2, log)
	brokerClient := broker.NewClient(cfg.BrokerGatewayURL, log)

	// Core wiring
	panel, err := agents.NewPanel(cfg.AgentTimeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build agent panel")
	}

	decisionRepo := consensus.NewDecisionRepository(decisionsDB, log)
	weightRepo := learning.NewWeightRepository(weightsDB, log)

	engine := consensus.NewEngine(panel, weightRepo, decisionRepo, cfg.CycleDeadline, log)
	execService := execution.NewService(brokerClient, decisionRepo, cfg.ExecutionConfidence, cfg.DryRun, log)
	tracker := outcome.NewTracker(decisionRepo, snapshotClient, cfg.MaturationHorizon, cfg.NeutralBand, log)

	const learningWindow = 30 * 24 * time.Hour
	learningService := learning.NewService(decisionRepo, weightRepo, panel.Names(), learningWindow, cfg.NeutralBand, log)

	// HTTP server
	srv := server.New(server.Config{
		Log:         log,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		DataDir:     cfg.DataDir,
		DecisionsDB: decisionsDB,
		WeightsDB:   weightsDB,
		SnapshotsDB: snapshotsDB,
		Engine:      engine,
		Decisions:   decisionRepo,
		Tracker:     tracker,
		Learning:    learningService,
		Snapshots:   snapshotClient,
		Metrics:     m,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Background rhythms
	tradingCycle := scheduler.NewTradingCycle(cfg.Instruments, cfg.TradingInterval,
		snapshotClient, engine, execService, tracker, m, log)
	tradingCycle.Start(ctx)

	learningScheduler := scheduler.NewLearningScheduler(learningService, cfg.LearningSchedule, m, log)
	if err := learningScheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start learning scheduler")
	}

	ackListener := execution.NewAckListener(cfg.BrokerAckStreamURL, decisionRepo, log)
	if !cfg.DryRun {
		go ackListener.Run(ctx)
	}

	var backup *reliability.BackupService
	if cfg.Backup != nil && cfg.Backup.Enabled {
		backup, err = reliability.NewBackupService(ctx, cfg.Backup, cfg.DataDir, map[string]*database.DB{
			"decisions": decisionsDB,
			"weights":   weightsDB,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup service")
		}
		if err := backup.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start backup service")
		}
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")
	cancel()

	tradingCycle.Stop()
	learningScheduler.Stop()
	if backup != nil {
		backup.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Flush WAL pages before the process exits.
	for _, db := range []*database.DB{decisionsDB, weightsDB, snapshotsDB} {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	log.Info().Msg("Shutdown complete")
}
