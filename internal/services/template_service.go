package services

import (
	"database/sql"
	"errors"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
)

var (
	// ErrTemplateNotFound is returned for lookups of unknown templates
	ErrTemplateNotFound = errors.New("template not found")
	// ErrTemplateInUse blocks deletion while a sequence step references the template
	ErrTemplateInUse = errors.New("template is still used by a sequence step")
)

// TemplateService manages email templates
type TemplateService struct {
	templateRepo *repositories.TemplateRepository
	sequenceRepo *repositories.SequenceRepository
}

// NewTemplateService creates a TemplateService
func NewTemplateService(templateRepo *repositories.TemplateRepository, sequenceRepo *repositories.SequenceRepository) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		sequenceRepo: sequenceRepo,
	}
}

// Create stores a new template
func (s *TemplateService) Create(t *models.EmailTemplate) error {
	return s.templateRepo.Create(t)
}

// GetByID retrieves a template
func (s *TemplateService) GetByID(id string) (*models.EmailTemplate, error) {
	t, err := s.templateRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns all templates
func (s *TemplateService) List() ([]*models.EmailTemplate, error) {
	return s.templateRepo.GetAll()
}

// Update edits a template's content
func (s *TemplateService) Update(t *models.EmailTemplate) error {
	if _, err := s.GetByID(t.ID); err != nil {
		return err
	}
	return s.templateRepo.Update(t)
}

// Delete removes a template unless a sequence step still references it
func (s *TemplateService) Delete(id string) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}

	inUse, err := s.sequenceRepo.CountStepsByTemplate(id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrTemplateInUse
	}

	return s.templateRepo.Delete(id)
}
