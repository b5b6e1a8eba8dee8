package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"reid-worker-go/internal/pipeline"
)

// StatsProvider exposes loop statistics
type StatsProvider interface {
	Stats() pipeline.RunStats
}

// SystemHandler handles system and loop statistics
type SystemHandler struct {
	WorkerID  string
	stats     StatsProvider
	startTime time.Time
}

func NewSystemHandler(workerID string, stats StatsProvider) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		stats:     stats,
		startTime: time.Now(),
	}
}

type StatsResponse struct {
	Success   bool              `json:"success"`
	Pipeline  pipeline.RunStats `json:"pipeline"`
	System    SystemStats       `json:"system"`
	Timestamp int64             `json:"timestamp"`
}

type SystemStats struct {
	WorkerID      string  `json:"worker_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	MemoryMB      uint64  `json:"memory_mb"`
	CPUCores      int     `json:"cpu_cores"`
	Goroutines    int     `json:"goroutines"`
	GoVersion     string  `json:"go_version"`
}

// @Summary Get stats
// @Description Loop throughput, per stream counters and process metrics
// @Tags system
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var run pipeline.RunStats
	if h.stats != nil {
		run = h.stats.Stats()
	}

	c.JSON(http.StatusOK, StatsResponse{
		Success:  true,
		Pipeline: run,
		System: SystemStats{
			WorkerID:      h.WorkerID,
			UptimeSeconds: time.Since(h.startTime).Seconds(),
			MemoryMB:      m.Alloc / 1024 / 1024,
			CPUCores:      runtime.NumCPU(),
			Goroutines:    runtime.NumGoroutine(),
			GoVersion:     runtime.Version(),
		},
		Timestamp: time.Now().Unix(),
	})
}
