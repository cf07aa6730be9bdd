package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coldreach/internal/services"
)

// ReportHandler exposes the sent-email audit log and analytics
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// ListSent returns the audit log, most recent first
func (h *ReportHandler) ListSent(c *gin.Context) {
	emails, err := h.reportService.ListSent()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sent emails"})
		return
	}

	c.JSON(http.StatusOK, emails)
}

// Summary returns aggregate sending statistics
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.reportService.Summary(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportXLSX streams the audit log as a spreadsheet download
func (h *ReportHandler) ExportXLSX(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reportService.ExportXLSX(&buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export sent emails"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="sent-emails.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
