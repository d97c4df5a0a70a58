package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
)

// LiveFeed upgrades requests to the websocket live-update feed
type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type StreamHandler struct {
	feed LiveFeed
}

func NewStreamHandler(feed LiveFeed) *StreamHandler {
	return &StreamHandler{feed: feed}
}

// ServeWS streams job envelopes over a websocket
// @Summary Live updates
// @Description Websocket feed of crossing events, statistics, progress and status. ?role= limits the feed to one camera.
// @Tags stream
// @Param role query string false "Camera role filter"
// @Success 101
// @Router /ws [get]
func (h *StreamHandler) ServeWS(c *gin.Context) {
	if err := h.feed.ServeWS(c.Writer, c.Request); err != nil {
		// the upgrader has already written the HTTP error
		logging.Warn(c).Err(err).Msg("Websocket upgrade failed")
	}
}
