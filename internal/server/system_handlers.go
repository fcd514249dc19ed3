package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mkosta/warroom/internal/database"
)

// SystemHandlers handles system-wide monitoring endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   map[string]*database.DB
}

// NewSystemHandlers creates the system monitoring handlers.
func NewSystemHandlers(log zerolog.Logger, dataDir string, decisionsDB, weightsDB, snapshotsDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now().UTC(),
		databases: map[string]*database.DB{
			"decisions": decisionsDB,
			"weights":   weightsDB,
			"snapshots": snapshotsDB,
		},
	}
}

type systemHealthResponse struct {
	Status     string             `json:"status"`
	Uptime     string             `json:"uptime"`
	Hostname   string             `json:"hostname"`
	Goroutines int                `json:"goroutines"`
	CPUPercent float64            `json:"cpu_percent"`
	Memory     memoryStats        `json:"memory"`
	Disk       diskStats          `json:"disk"`
	Databases  map[string]dbStats `json:"databases"`
}

type memoryStats struct {
	TotalMB     uint64  `json:"total_mb"`
	UsedMB      uint64  `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

type diskStats struct {
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

type dbStats struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Path    string `json:"path"`
}

func (h *SystemHandlers) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp := systemHealthResponse{
		Status:     "ok",
		Uptime:     time.Since(h.startupTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Databases:  make(map[string]dbStats, len(h.databases)),
	}
	resp.Hostname, _ = os.Hostname()

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.Memory = memoryStats{
			TotalMB:     vm.Total / 1024 / 1024,
			UsedMB:      vm.Used / 1024 / 1024,
			UsedPercent: vm.UsedPercent,
		}
	}

	if usage, err := disk.UsageWithContext(ctx, h.dataDir); err == nil {
		resp.Disk = diskStats{
			TotalGB:     float64(usage.Total) / 1024 / 1024 / 1024,
			FreeGB:      float64(usage.Free) / 1024 / 1024 / 1024,
			UsedPercent: usage.UsedPercent,
		}
	}

	for name, db := range h.databases {
		stats := dbStats{Healthy: true, Path: db.Path()}
		if err := db.HealthCheck(ctx); err != nil {
			stats.Healthy = false
			stats.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Databases[name] = stats
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("failed to encode system health response")
	}
}
