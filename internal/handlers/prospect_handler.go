package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coldreach/internal/models"
	"coldreach/internal/services"
)

// ProspectHandler exposes prospect CRUD and the timeline view
type ProspectHandler struct {
	prospectService *services.ProspectService
}

// NewProspectHandler creates a ProspectHandler
func NewProspectHandler(prospectService *services.ProspectService) *ProspectHandler {
	return &ProspectHandler{prospectService: prospectService}
}

type prospectRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   string  `json:"email" binding:"required"`
	Company *string `json:"company"`
	Title   *string `json:"title"`
}

// Create adds a prospect
func (h *ProspectHandler) Create(c *gin.Context) {
	var req prospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := models.NewProspect(req.Name, req.Email)
	p.Company = req.Company
	p.Title = req.Title

	if err := h.prospectService.Create(p); err != nil {
		if errors.Is(err, services.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create prospect"})
		return
	}

	c.JSON(http.StatusCreated, p)
}

// List returns prospects, with ?assigned=true|false filtering on sequence
// assignment.
func (h *ProspectHandler) List(c *gin.Context) {
	var assigned *bool
	if raw := c.Query("assigned"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assigned filter"})
			return
		}
		assigned = &value
	}

	prospects, err := h.prospectService.List(assigned)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list prospects"})
		return
	}

	c.JSON(http.StatusOK, prospects)
}

// Get returns one prospect
func (h *ProspectHandler) Get(c *gin.Context) {
	p, err := h.prospectService.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProspectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prospect not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get prospect"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// Update edits a prospect's contact fields
func (h *ProspectHandler) Update(c *gin.Context) {
	p, err := h.prospectService.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProspectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prospect not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get prospect"})
		return
	}

	var req prospectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p.Name = req.Name
	p.Email = req.Email
	p.Company = req.Company
	p.Title = req.Title

	if err := h.prospectService.Update(p); err != nil {
		if errors.Is(err, services.ErrInvalidEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update prospect"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// Delete removes a prospect and its schedule history
func (h *ProspectHandler) Delete(c *gin.Context) {
	if err := h.prospectService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrProspectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prospect not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete prospect"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

// Timeline returns a prospect's per-step schedule history
func (h *ProspectHandler) Timeline(c *gin.Context) {
	entries, err := h.prospectService.Timeline(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProspectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Prospect not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build timeline"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
