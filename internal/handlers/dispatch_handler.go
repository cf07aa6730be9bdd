package handlers

import (
	"net/http"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gin-gonic/gin"

	"coldreach/internal/mailer"
	"coldreach/internal/services"
)

// DispatchHandler exposes the dispatch sweep triggers
type DispatchHandler struct {
	dispatchService *services.DispatchService
	mail            mailer.Mailer
}

// NewDispatchHandler creates a DispatchHandler
func NewDispatchHandler(dispatchService *services.DispatchService, mail mailer.Mailer) *DispatchHandler {
	return &DispatchHandler{
		dispatchService: dispatchService,
		mail:            mail,
	}
}

// Run triggers one dispatch sweep under the normal window and cap rules
func (h *DispatchHandler) Run(c *gin.Context) {
	result, err := h.dispatchService.Run(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dispatch sweep failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Force triggers a sweep that ignores the send window and the daily cap.
// Operator escape hatch only; not meant for the regular cadence.
func (h *DispatchHandler) Force(c *gin.Context) {
	result, err := h.dispatchService.Force(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Forced dispatch sweep failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type testEmailRequest struct {
	Email   string `json:"email" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// SendTest sends a one-off email through the mail capability directly
func (h *DispatchHandler) SendTest(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := checkmail.ValidateFormat(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}

	if !h.mail.Send(req.Email, req.Subject, req.Body, "", nil) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send test email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test email sent"})
}
