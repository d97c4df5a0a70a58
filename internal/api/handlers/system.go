package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SinkLister reports which publisher sinks are active
type SinkLister interface {
	Sinks() []string
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID  string
	startTime time.Time
	sinks     SinkLister
	clients   ClientCounter
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, sinks SinkLister, clients ClientCounter) *SystemHandler {
	return &SystemHandler{
		WorkerID:  workerID,
		startTime: time.Now(),
		sinks:     sinks,
		clients:   clients,
	}
}

// @Summary Get system stats
// @Description Get runtime statistics of the worker process
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := gin.H{
		"worker_id":      h.WorkerID,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"memory_mb":      m.Alloc / 1024 / 1024,
		"cpu_cores":      runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"go_version":     runtime.Version(),
	}
	if h.sinks != nil {
		stats["sinks"] = h.sinks.Sinks()
	}
	if h.clients != nil {
		stats["ws_clients"] = h.clients.ClientCount()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": time.Now().Unix(),
	})
}
