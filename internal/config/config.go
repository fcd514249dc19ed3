// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for all databases (always absolute)
	Port                int
	DevMode             bool
	LogLevel            string
	SnapshotServiceURL  string // Context snapshot provider
	BrokerGatewayURL    string // Execution sink REST endpoint
	BrokerAckStreamURL  string // Execution acknowledgment websocket
	DryRun              bool   // Compute instructions but never send them
	Instruments         []string
	TradingInterval     time.Duration // Cadence of the consensus cycle
	AgentTimeout        time.Duration // Per-agent budget within one cycle
	CycleDeadline       time.Duration // Global deadline for one consensus cycle
	MaturationHorizon   time.Duration // Wait before a decision can be graded
	NeutralBand         float64       // |return| below this grades HOLD/MAINTAIN correct
	ExecutionConfidence float64       // Minimum aggregate confidence to emit an instruction
	LearningSchedule    string        // Cron spec for the daily learning cycle (UTC)
	Backup              *BackupConfig
}

// BackupConfig holds nightly object-storage backup configuration
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // S3-compatible endpoint (empty = AWS)
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // Cron spec (UTC)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WARROOM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		Port:                getEnvAsInt("WARROOM_PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		SnapshotServiceURL:  getEnv("SNAPSHOT_SERVICE_URL", "http://localhost:9100"),
		BrokerGatewayURL:    getEnv("BROKER_GATEWAY_URL", "http://localhost:9200"),
		BrokerAckStreamURL:  getEnv("BROKER_ACK_STREAM_URL", "ws://localhost:9200/acks"),
		DryRun:              getEnvAsBool("DRY_RUN", true),
		Instruments:         getEnvAsList("INSTRUMENTS", []string{"AAPL", "NVDA", "MSFT"}),
		TradingInterval:     getEnvAsDuration("TRADING_INTERVAL", 30*time.Second),
		AgentTimeout:        getEnvAsDuration("AGENT_TIMEOUT", 10*time.Second),
		CycleDeadline:       getEnvAsDuration("CYCLE_DEADLINE", 25*time.Second),
		MaturationHorizon:   getEnvAsDuration("MATURATION_HORIZON", 24*time.Hour),
		NeutralBand:         getEnvAsFloat("NEUTRAL_BAND", 0.005),
		ExecutionConfidence: getEnvAsFloat("EXECUTION_CONFIDENCE", 0.70),
		LearningSchedule:    getEnv("LEARNING_SCHEDULE", "0 2 * * *"),
		Backup:              loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and coherent
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument must be configured")
	}
	if c.AgentTimeout >= c.CycleDeadline {
		return fmt.Errorf("agent timeout (%s) must be shorter than the cycle deadline (%s)", c.AgentTimeout, c.CycleDeadline)
	}
	if c.NeutralBand < 0 {
		return fmt.Errorf("neutral band must be non-negative, got %f", c.NeutralBand)
	}
	if c.ExecutionConfidence < 0 || c.ExecutionConfidence > 1 {
		return fmt.Errorf("execution confidence must be in [0,1], got %f", c.ExecutionConfidence)
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup enabled but BACKUP_BUCKET not set")
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Schedule:        getEnv("BACKUP_SCHEDULE", "0 3 * * *"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
