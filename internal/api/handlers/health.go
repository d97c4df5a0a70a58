package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
)

// TrackerHealth reports whether the tracker collaborator is reachable
type TrackerHealth interface {
	IsHealthy() bool
}

type HealthHandler struct {
	cfg     *config.Config
	tracker TrackerHealth
}

func NewHealthHandler(cfg *config.Config, tracker TrackerHealth) *HealthHandler {
	return &HealthHandler{cfg: cfg, tracker: tracker}
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	WorkerID string `json:"worker_id" example:"counter-1"`
	Tracker  string `json:"tracker" example:"serving"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"counter-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Location     string   `json:"location" example:"north-gate"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the worker is healthy. The worker stays up while the tracker is unreachable and reports itself degraded.
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		WorkerID: h.cfg.WorkerID,
		Tracker:  "serving",
	}
	if h.tracker == nil || !h.tracker.IsHealthy() {
		resp.Status = "degraded"
		resp.Tracker = "unavailable"
	}
	c.JSON(http.StatusOK, resp)
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
		WorkerID: h.cfg.WorkerID,
		Status:   "running",
		Version:  h.cfg.Version,
		Location: h.cfg.SiteLocation,
		Capabilities: []string{
			"line_crossing_counting",
			"occupancy_estimation",
			"live_streams",
			"video_files",
		},
	})
}
