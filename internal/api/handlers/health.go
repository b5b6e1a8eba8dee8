package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunState reports whether the re-identification loop is running
type RunState interface {
	Running() bool
}

type HealthHandler struct {
	WorkerID string
	Version  string
	state    RunState
}

func NewHealthHandler(workerID, version string, state RunState) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, state: state}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"reid-1"`
	Pipeline string `json:"pipeline" example:"running"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"reid-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
	Streams      []string `json:"streams"`
}

func (h *HealthHandler) pipelineState() string {
	if h.state != nil && h.state.Running() {
		return "running"
	}
	return "stopped"
}

// @Summary Health check
// @Description Check if the worker is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		WorkerID: h.WorkerID,
		Pipeline: h.pipelineState(),
	})
}

// @Summary Worker information
// @Description Get basic worker information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   h.pipelineState(),
		Version:  h.Version,
		Capabilities: []string{
			"person_detection",
			"centroid_tracking",
			"re_identification",
			"mjpeg_streaming",
		},
		Streams: []string{"composite", "entry", "exit"},
	})
}
