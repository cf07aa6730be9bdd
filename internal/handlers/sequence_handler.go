package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coldreach/internal/models"
	"coldreach/internal/services"
)

// SequenceHandler exposes sequence and step CRUD plus cohort assignment
type SequenceHandler struct {
	sequenceService *services.SequenceService
	materializer    *services.MaterializerService
}

// NewSequenceHandler creates a SequenceHandler
func NewSequenceHandler(sequenceService *services.SequenceService, materializer *services.MaterializerService) *SequenceHandler {
	return &SequenceHandler{
		sequenceService: sequenceService,
		materializer:    materializer,
	}
}

type sequenceRequest struct {
	Name string  `json:"name" binding:"required"`
	BCC  *string `json:"bcc"`
}

// Create adds a sequence
func (h *SequenceHandler) Create(c *gin.Context) {
	var req sequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seq := models.NewSequence(req.Name)
	seq.BCC = req.BCC

	if err := h.sequenceService.Create(seq); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create sequence"})
		return
	}

	c.JSON(http.StatusCreated, seq)
}

// List returns all sequences
func (h *SequenceHandler) List(c *gin.Context) {
	sequences, err := h.sequenceService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sequences"})
		return
	}

	c.JSON(http.StatusOK, sequences)
}

// Update edits a sequence
func (h *SequenceHandler) Update(c *gin.Context) {
	seq, err := h.sequenceService.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrSequenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sequence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get sequence"})
		return
	}

	var req sequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seq.Name = req.Name
	seq.BCC = req.BCC

	if err := h.sequenceService.Update(seq); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update sequence"})
		return
	}

	c.JSON(http.StatusOK, seq)
}

// Delete removes a sequence, cascading into steps and pending schedule rows
func (h *SequenceHandler) Delete(c *gin.Context) {
	if err := h.sequenceService.Delete(c.Param("id")); err != nil {
		if errors.Is(err, services.ErrSequenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sequence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete sequence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

type stepRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
	DelayDays  *int   `json:"delay_days" binding:"required"`
}

// AddStep appends a step to a sequence
func (h *SequenceHandler) AddStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.sequenceService.AddStep(c.Param("id"), req.TemplateID, *req.DelayDays)
	if err != nil {
		if errors.Is(err, services.ErrSequenceNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Sequence does not exist"})
			return
		}
		if errors.Is(err, services.ErrTemplateNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Template does not exist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create step"})
		return
	}

	c.JSON(http.StatusCreated, step)
}

// ListSteps returns a sequence's steps in canonical order
func (h *SequenceHandler) ListSteps(c *gin.Context) {
	steps, err := h.sequenceService.GetSteps(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrSequenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sequence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list steps"})
		return
	}

	c.JSON(http.StatusOK, steps)
}

// UpdateStep edits a step
func (h *SequenceHandler) UpdateStep(c *gin.Context) {
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step := &models.SequenceStep{
		ID:         c.Param("step_id"),
		TemplateID: req.TemplateID,
		DelayDays:  *req.DelayDays,
	}

	if err := h.sequenceService.UpdateStep(step); err != nil {
		if errors.Is(err, services.ErrStepNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Step not found"})
			return
		}
		if errors.Is(err, services.ErrTemplateNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Template does not exist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update step"})
		return
	}

	c.JSON(http.StatusOK, step)
}

// DeleteStep removes a step
func (h *SequenceHandler) DeleteStep(c *gin.Context) {
	if err := h.sequenceService.DeleteStep(c.Param("step_id")); err != nil {
		if errors.Is(err, services.ErrStepNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Step not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete step"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

type assignRequest struct {
	ProspectIDs   []string `json:"prospect_ids" binding:"required"`
	SequenceID    string   `json:"sequence_id" binding:"required"`
	VentilateDays int      `json:"ventilate_days"`
	StartDate     string   `json:"start_date"`
}

// Assign materializes a sequence for a cohort of prospects, spreading
// first-touch days over the ventilation window.
func (h *SequenceHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ventilateDays := req.VentilateDays
	if ventilateDays < 1 {
		ventilateDays = 1
	}

	startDate := time.Now()
	if req.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_date, expected YYYY-MM-DD"})
			return
		}
		startDate = parsed
	}

	result, err := h.materializer.Materialize(req.ProspectIDs, req.SequenceID, ventilateDays, startDate)
	if err != nil {
		if errors.Is(err, services.ErrSequenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Sequence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign sequence"})
		return
	}

	c.JSON(http.StatusOK, result)
}
