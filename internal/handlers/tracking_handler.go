package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coldreach/internal/repositories"
	"coldreach/internal/services"
	"coldreach/pkg/logger"
)

// trackingPixel is a transparent 1x1 GIF
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x4c, 0x01, 0x00, 0x3b,
}

// TrackingHandler serves the open pixel and the unsubscribe link. Both are
// thin, stateless handlers.
type TrackingHandler struct {
	sentRepo        *repositories.SentEmailRepository
	prospectService *services.ProspectService
}

// NewTrackingHandler creates a TrackingHandler
func NewTrackingHandler(sentRepo *repositories.SentEmailRepository, prospectService *services.ProspectService) *TrackingHandler {
	return &TrackingHandler{
		sentRepo:        sentRepo,
		prospectService: prospectService,
	}
}

// TrackOpen flips a sent audit row to opened and returns the pixel. The
// pixel is returned even when the row is unknown, so mail clients never see
// a broken image.
func (h *TrackingHandler) TrackOpen(c *gin.Context) {
	id := c.Param("id")
	if id != "" {
		// Tracking must never fail the request; the pixel goes out
		// regardless of the outcome.
		if _, err := h.sentRepo.MarkOpened(id); err != nil {
			logger.WithError(err).WithField("sent_id", id).Warnf("failed to record email open")
		}
	}

	c.Data(http.StatusOK, "image/gif", trackingPixel)
}

// Unsubscribe flags the prospect identified by the token and purges its
// pending schedule.
func (h *TrackingHandler) Unsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte("<h3>Invalid unsubscribe link.</h3>"))
		return
	}

	if err := h.prospectService.Unsubscribe(token); err != nil {
		if errors.Is(err, services.ErrProspectNotFound) {
			c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte("<h3>Invalid or expired unsubscribe link.</h3>"))
			return
		}
		c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte("<h3>Something went wrong.</h3>"))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h3>You have been unsubscribed successfully.</h3>"))
}
