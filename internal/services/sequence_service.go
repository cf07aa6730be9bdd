package services

import (
	"database/sql"
	"errors"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
)

// ErrStepNotFound is returned for lookups of unknown sequence steps
var ErrStepNotFound = errors.New("sequence step not found")

// SequenceService manages sequences and their steps
type SequenceService struct {
	sequenceRepo  *repositories.SequenceRepository
	templateRepo  *repositories.TemplateRepository
	prospectRepo  *repositories.ProspectRepository
	scheduledRepo *repositories.ScheduledEmailRepository
}

// NewSequenceService creates a SequenceService
func NewSequenceService(
	sequenceRepo *repositories.SequenceRepository,
	templateRepo *repositories.TemplateRepository,
	prospectRepo *repositories.ProspectRepository,
	scheduledRepo *repositories.ScheduledEmailRepository,
) *SequenceService {
	return &SequenceService{
		sequenceRepo:  sequenceRepo,
		templateRepo:  templateRepo,
		prospectRepo:  prospectRepo,
		scheduledRepo: scheduledRepo,
	}
}

// Create stores a new sequence
func (s *SequenceService) Create(seq *models.Sequence) error {
	return s.sequenceRepo.Create(seq)
}

// GetByID retrieves a sequence
func (s *SequenceService) GetByID(id string) (*models.Sequence, error) {
	seq, err := s.sequenceRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSequenceNotFound
		}
		return nil, err
	}
	return seq, nil
}

// List returns all sequences
func (s *SequenceService) List() ([]*models.Sequence, error) {
	return s.sequenceRepo.GetAll()
}

// Update updates a sequence
func (s *SequenceService) Update(seq *models.Sequence) error {
	if _, err := s.GetByID(seq.ID); err != nil {
		return err
	}
	return s.sequenceRepo.Update(seq)
}

// Delete removes a sequence, its steps, its pending schedule rows, and
// detaches the prospects assigned to it. Stale pending rows referencing a
// deleted sequence are exactly the consistency bug this cascade prevents.
func (s *SequenceService) Delete(id string) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	if err := s.scheduledRepo.DeletePendingBySequence(id); err != nil {
		return err
	}
	if err := s.prospectRepo.DetachSequence(id); err != nil {
		return err
	}
	return s.sequenceRepo.Delete(id)
}

// AddStep validates the referenced template and sequence and creates a step
func (s *SequenceService) AddStep(sequenceID, templateID string, delayDays int) (*models.SequenceStep, error) {
	if _, err := s.GetByID(sequenceID); err != nil {
		return nil, err
	}
	if _, err := s.templateRepo.GetByID(templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	step := models.NewSequenceStep(sequenceID, templateID, delayDays)
	if err := s.sequenceRepo.CreateStep(step); err != nil {
		return nil, err
	}
	return step, nil
}

// GetSteps returns a sequence's steps in canonical order
func (s *SequenceService) GetSteps(sequenceID string) ([]*models.SequenceStep, error) {
	if _, err := s.GetByID(sequenceID); err != nil {
		return nil, err
	}
	return s.sequenceRepo.GetSteps(sequenceID)
}

// UpdateStep updates a step's template or delay
func (s *SequenceService) UpdateStep(step *models.SequenceStep) error {
	existing, err := s.sequenceRepo.GetStepByID(step.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStepNotFound
		}
		return err
	}
	if _, err := s.templateRepo.GetByID(step.TemplateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTemplateNotFound
		}
		return err
	}

	step.SequenceID = existing.SequenceID
	return s.sequenceRepo.UpdateStep(step)
}

// DeleteStep removes a step
func (s *SequenceService) DeleteStep(id string) error {
	if _, err := s.sequenceRepo.GetStepByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStepNotFound
		}
		return err
	}
	return s.sequenceRepo.DeleteStep(id)
}
