package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
)

type StatisticsHandler struct {
	manager *camera.Manager
}

func NewStatisticsHandler(manager *camera.Manager) *StatisticsHandler {
	return &StatisticsHandler{manager: manager}
}

// GetSiteStatistics merges every camera of the current session
// @Summary Get site statistics
// @Description Vehicles in and out, net vehicles, estimated people on site and the merged vehicle distribution
// @Tags statistics
// @Produce json
// @Success 200 {object} models.SiteStatistics
// @Router /statistics [get]
func (h *StatisticsHandler) GetSiteStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.SiteStatistics())
}

// GetDistribution returns the merged vehicle distribution
// @Summary Get vehicle distribution
// @Tags statistics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /statistics/distribution [get]
func (h *StatisticsHandler) GetDistribution(c *gin.Context) {
	site := h.manager.SiteStatistics()
	c.JSON(http.StatusOK, gin.H{
		"session_id":           site.SessionID,
		"vehicle_distribution": site.VehicleDistribution,
	})
}
