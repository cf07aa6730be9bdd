package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coldreach/internal/models"
	"coldreach/internal/services"
)

// TemplateHandler exposes email template CRUD
type TemplateHandler struct {
	templateService *services.TemplateService
}

// NewTemplateHandler creates a TemplateHandler
func NewTemplateHandler(templateService *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

type templateRequest struct {
	Name    string `json:"name" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// Create adds a template
func (h *TemplateHandler) Create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t := models.NewEmailTemplate(req.Name, req.Subject, req.Body)
	if err := h.templateService.Create(t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, t)
}

// List returns all templates
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templateService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}

	c.JSON(http.StatusOK, templates)
}

// Update edits a template's content
func (h *TemplateHandler) Update(c *gin.Context) {
	t, err := h.templateService.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get template"})
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t.Name = req.Name
	t.Subject = req.Subject
	t.Body = req.Body

	if err := h.templateService.Update(t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}

	c.JSON(http.StatusOK, t)
}

// Delete removes a template unless a sequence step still uses it
func (h *TemplateHandler) Delete(c *gin.Context) {
	err := h.templateService.Delete(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		if errors.Is(err, services.ErrTemplateInUse) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete template: it is still used in a sequence step"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}
