package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
)

const firstFrameTimeout = 15 * time.Second

type CameraHandler struct {
	manager *camera.Manager
}

func NewCameraHandler(manager *camera.Manager) *CameraHandler {
	return &CameraHandler{manager: manager}
}

type AttachSourceRequest struct {
	Kind           string     `json:"kind" binding:"required" example:"file"`
	URI            string     `json:"uri" binding:"required" example:"/data/entry.mp4"`
	VideoStartTime *time.Time `json:"video_start_time,omitempty"`
	Mode           string     `json:"mode,omitempty" example:"restart"`
}

type LineRequest struct {
	Points [][]float64 `json:"points" binding:"required"`
	Inside string      `json:"inside,omitempty" example:"right"`
}

type FirstFrameResponse struct {
	CameraRole models.CameraRole `json:"camera_role" example:"ENTRY"`
	Width      int               `json:"width" example:"1280"`
	Height     int               `json:"height" example:"720"`
	Encoding   string            `json:"encoding" example:"jpeg"`
	Image      string            `json:"image"`
}

// ParseLine converts the two-point request body into a counting line
func (r LineRequest) ParseLine() (models.CountingLine, error) {
	if len(r.Points) != 2 {
		return models.CountingLine{}, fmt.Errorf("line needs exactly two points, got %d", len(r.Points))
	}
	for i, p := range r.Points {
		if len(p) != 2 {
			return models.CountingLine{}, fmt.Errorf("point %d must be [x, y]", i)
		}
	}
	inside, err := models.ParseSide(r.Inside)
	if err != nil {
		return models.CountingLine{}, err
	}
	return models.CountingLine{
		A:      models.Point{X: r.Points[0][0], Y: r.Points[0][1]},
		B:      models.Point{X: r.Points[1][0], Y: r.Points[1][1]},
		Inside: inside,
	}, nil
}

// ListCameras lists all camera jobs
// @Summary List all cameras
// @Description Get the status of every configured camera role
// @Tags cameras
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /cameras [get]
func (h *CameraHandler) ListCameras(c *gin.Context) {
	statuses := h.manager.Statuses()
	c.JSON(http.StatusOK, gin.H{
		"cameras": statuses,
		"count":   len(statuses),
	})
}

// AttachSource attaches a video file or live stream to a camera
// @Summary Attach a source
// @Description Attach a file or live source. After a finished run, mode selects whether statistics continue or restart.
// @Tags cameras
// @Accept json
// @Produce json
// @Param role path string true "Camera role"
// @Param request body AttachSourceRequest true "Source"
// @Success 200 {object} models.JobStatus
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cameras/{role}/source [put]
func (h *CameraHandler) AttachSource(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	var req AttachSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	mode, err := models.ParseAccumulationMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	spec := models.SourceSpec{Kind: models.SourceKind(req.Kind), URI: req.URI}
	if req.VideoStartTime != nil {
		spec.StartTime = *req.VideoStartTime
	}
	if err := h.manager.AttachSource(role, spec, mode); err != nil {
		respondError(c, err)
		return
	}

	h.respondStatus(c, role)
}

// SetLine configures the counting line of a camera
// @Summary Set the counting line
// @Description Configure the two-point counting line. inside names the on-site side; when empty the camera role decides the direction.
// @Tags cameras
// @Accept json
// @Produce json
// @Param role path string true "Camera role"
// @Param request body LineRequest true "Line"
// @Success 200 {object} models.JobStatus
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cameras/{role}/line [put]
func (h *CameraHandler) SetLine(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	var req LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	line, err := req.ParseLine()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.manager.SetLine(role, line); err != nil {
		respondError(c, err)
		return
	}

	h.respondStatus(c, role)
}

// FirstFrame returns the first frame of the attached source for line drawing
// @Summary Get the first frame
// @Description Extract the first frame of the attached source as a base64 JPEG
// @Tags cameras
// @Produce json
// @Param role path string true "Camera role"
// @Success 200 {object} FirstFrameResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /cameras/{role}/first-frame [get]
func (h *CameraHandler) FirstFrame(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), firstFrameTimeout)
	defer cancel()

	frame, err := h.manager.FirstFrame(ctx, role)
	if err != nil {
		if errors.Is(err, camera.ErrUnknownRole) || errors.Is(err, camera.ErrSourceNotConfigured) {
			respondError(c, err)
			return
		}
		logging.Error(c).Err(err).Msg("Failed to extract first frame")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, FirstFrameResponse{
		CameraRole: role,
		Width:      frame.Width,
		Height:     frame.Height,
		Encoding:   frame.Encoding,
		Image:      base64.StdEncoding.EncodeToString(frame.Data),
	})
}

// StartCamera starts counting on a ready camera
// @Summary Start a camera
// @Tags cameras
// @Produce json
// @Param role path string true "Camera role"
// @Success 202 {object} models.JobStatus
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cameras/{role}/start [post]
func (h *CameraHandler) StartCamera(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	if err := h.manager.Start(role); err != nil {
		respondError(c, err)
		return
	}

	logging.Info(c).Msg("Camera started")
	status, _ := h.manager.Status(role)
	c.JSON(http.StatusAccepted, status)
}

// StopCamera requests a cooperative stop
// @Summary Stop a camera
// @Description Request a stop. The frame in flight completes and the job ends in the stopped state.
// @Tags cameras
// @Produce json
// @Param role path string true "Camera role"
// @Success 202 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /cameras/{role}/stop [post]
func (h *CameraHandler) StopCamera(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	if err := h.manager.Stop(role); err != nil {
		respondError(c, err)
		return
	}

	logging.Info(c).Msg("Camera stop requested")
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "stop requested"})
}

// GetCameraStatus returns the job status
// @Summary Get camera status
// @Tags cameras
// @Produce json
// @Param role path string true "Camera role"
// @Success 200 {object} models.JobStatus
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{role}/status [get]
func (h *CameraHandler) GetCameraStatus(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	h.respondStatus(c, role)
}

// GetCameraStatistics returns baseline plus current statistics of a camera
// @Summary Get camera statistics
// @Tags cameras
// @Produce json
// @Param role path string true "Camera role"
// @Success 200 {object} models.CameraStatistics
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{role}/statistics [get]
func (h *CameraHandler) GetCameraStatistics(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	stats, err := h.manager.CameraStatistics(role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetCameraEvents returns the most recent crossing events of a camera
// @Summary Get recent crossing events
// @Tags cameras
// @Produce json
// @Param role path string true "Camera role"
// @Param limit query int false "Maximum number of events" default(50)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /cameras/{role}/events [get]
func (h *CameraHandler) GetCameraEvents(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c, 50)
	if !ok {
		return
	}
	events, err := h.manager.Events(role, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"camera_role": role,
		"events":      events,
		"count":       len(events),
	})
}

func (h *CameraHandler) respondStatus(c *gin.Context, role models.CameraRole) {
	status, err := h.manager.Status(role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
