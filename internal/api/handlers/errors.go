package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
)

type ErrorResponse struct {
	Error string `json:"error" example:"counting line not configured"`
}

type SuccessResponse struct {
	Message string `json:"message" example:"camera started"`
}

// statusFor maps job control errors onto HTTP status codes. Anything that is
// not a known sentinel is a validation problem of the request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, camera.ErrUnknownRole):
		return http.StatusNotFound
	case errors.Is(err, camera.ErrLineNotConfigured),
		errors.Is(err, camera.ErrConfigurationLocked),
		errors.Is(err, camera.ErrInvalidTransition),
		errors.Is(err, camera.ErrSourceNotConfigured):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	logging.Warn(c).Err(err).Int("status", status).Msg("Request rejected")
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// roleParam normalizes the :role path parameter
func roleParam(c *gin.Context) (models.CameraRole, bool) {
	role, err := models.ParseCameraRole(c.Param("role"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return role, true
}
