package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/db"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
)

const flushTimeout = 2 * time.Second

// SessionHistory reads persisted sessions and what they counted
type SessionHistory interface {
	RecentSessions(ctx context.Context, limit int) ([]models.Session, error)
	SiteSnapshot(ctx context.Context, sessionID string) (models.SiteStatistics, error)
	CameraSnapshot(ctx context.Context, sessionID string, role models.CameraRole) (models.CameraStatistics, error)
	JobState(ctx context.Context, sessionID string, role models.CameraRole) (string, error)
	Events(ctx context.Context, sessionID string, role models.CameraRole, limit int) ([]models.CrossingEvent, error)
}

// SnapshotCache serves recent site statistics ahead of the database
type SnapshotCache interface {
	SiteStatistics(ctx context.Context, sessionID string) (models.SiteStatistics, error)
}

type SessionHandler struct {
	manager *camera.Manager
	history SessionHistory
	cache   SnapshotCache
}

func NewSessionHandler(manager *camera.Manager, history SessionHistory, cache SnapshotCache) *SessionHandler {
	return &SessionHandler{manager: manager, history: history, cache: cache}
}

// SessionCameraReport is what was persisted for one camera of a session
type SessionCameraReport struct {
	SessionID  string                  `json:"session_id"`
	Role       models.CameraRole       `json:"camera_role"`
	State      string                  `json:"state,omitempty"`
	Statistics models.CameraStatistics `json:"statistics"`
	Events     []models.CrossingEvent  `json:"events"`
}

type NewSessionRequest struct {
	Location string `json:"location" example:"north-gate"`
}

// NewSession starts a new monitoring session
// @Summary Start a new session
// @Description Reset every camera job and start a new session. Rejected while any camera is running.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body NewSessionRequest false "Session location"
// @Success 201 {object} models.Session
// @Failure 409 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) NewSession(c *gin.Context) {
	var req NewSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	s, err := h.manager.NewSession(req.Location)
	if err != nil {
		respondError(c, err)
		return
	}

	logging.Info(c).Str("session_id", s.ID).Str("location", s.Location).Msg("Session started")
	c.JSON(http.StatusCreated, s)
}

// CurrentSession returns the active session
// @Summary Get the current session
// @Tags sessions
// @Produce json
// @Success 200 {object} models.Session
// @Router /sessions/current [get]
func (h *SessionHandler) CurrentSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Session())
}

// RecentSessions lists persisted sessions, newest first
// @Summary List recent sessions
// @Tags sessions
// @Produce json
// @Param limit query int false "Maximum number of sessions" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/recent [get]
func (h *SessionHandler) RecentSessions(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session history not available"})
		return
	}
	limit, ok := limitQuery(c, 10)
	if !ok {
		return
	}

	sessions, err := h.history.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// SessionStatistics returns the last site statistics persisted for a session
// @Summary Get the statistics of a past session
// @Description Served from the Redis snapshot cache when enabled, otherwise from SQLite
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SiteStatistics
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/recent/{id}/statistics [get]
func (h *SessionHandler) SessionStatistics(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session history not available"})
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()
	h.flushCurrent(c, id)

	if h.cache != nil {
		stats, err := h.cache.SiteStatistics(ctx, id)
		if err == nil {
			c.JSON(http.StatusOK, stats)
			return
		}
		logging.Debug(c).Err(err).Str("session_id", id).Msg("Snapshot cache miss")
	}

	stats, err := h.history.SiteSnapshot(ctx, id)
	if err != nil {
		h.respondHistoryError(c, err, "failed to load session statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SessionCamera returns the persisted statistics, last state and events of
// one camera of a session
// @Summary Get one camera of a past session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param role path string true "Camera role"
// @Param limit query int false "Maximum number of events" default(50)
// @Success 200 {object} SessionCameraReport
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/recent/{id}/cameras/{role} [get]
func (h *SessionHandler) SessionCamera(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "session history not available"})
		return
	}
	role, ok := roleParam(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c, 50)
	if !ok {
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()
	h.flushCurrent(c, id)

	report := SessionCameraReport{SessionID: id, Role: role}

	state, stateErr := h.history.JobState(ctx, id, role)
	if stateErr != nil && !errors.Is(stateErr, db.ErrNotFound) {
		h.respondHistoryError(c, stateErr, "failed to load camera state")
		return
	}
	report.State = state

	stats, statsErr := h.history.CameraSnapshot(ctx, id, role)
	switch {
	case statsErr == nil:
		report.Statistics = stats
	case errors.Is(statsErr, db.ErrNotFound):
		if stateErr != nil {
			h.respondHistoryError(c, statsErr, "")
			return
		}
		report.Statistics = models.NewCameraStatistics()
	default:
		h.respondHistoryError(c, statsErr, "failed to load camera statistics")
		return
	}

	events, err := h.history.Events(ctx, id, role, limit)
	if err != nil {
		h.respondHistoryError(c, err, "failed to load camera events")
		return
	}
	if events == nil {
		events = []models.CrossingEvent{}
	}
	report.Events = events

	c.JSON(http.StatusOK, report)
}

// flushCurrent lets reads of the live session see everything emitted so far
func (h *SessionHandler) flushCurrent(c *gin.Context, sessionID string) {
	if h.manager == nil || sessionID != h.manager.Session().ID {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), flushTimeout)
	defer cancel()
	if err := h.manager.Flush(ctx); err != nil {
		logging.Warn(c).Err(err).Msg("Publish queue not flushed before read")
	}
}

func (h *SessionHandler) respondHistoryError(c *gin.Context, err error, msg string) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	logging.Error(c).Err(err).Msg(msg)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
}

// limitQuery parses ?limit=, writing a 400 on garbage
func limitQuery(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}
