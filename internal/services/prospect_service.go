package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/badoux/checkmail"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
)

var (
	// ErrProspectNotFound is returned for lookups of unknown prospects
	ErrProspectNotFound = errors.New("prospect not found")
	// ErrInvalidEmail is returned when an email address fails format validation
	ErrInvalidEmail = errors.New("invalid email address")
)

// ProspectView is a prospect enriched with its sequence name and progress
type ProspectView struct {
	*models.Prospect
	SequenceName *string `json:"sequence_name"`
	StepsTotal   int     `json:"sequence_steps_total"`
	StepsDone    int     `json:"sequence_step_current"`
	ProgressPct  int     `json:"sequence_progress_pct"`
}

// ProspectService manages prospects and their cascade into schedule state
type ProspectService struct {
	prospectRepo  *repositories.ProspectRepository
	sequenceRepo  *repositories.SequenceRepository
	templateRepo  *repositories.TemplateRepository
	scheduledRepo *repositories.ScheduledEmailRepository
	sentRepo      *repositories.SentEmailRepository
}

// NewProspectService creates a ProspectService
func NewProspectService(
	prospectRepo *repositories.ProspectRepository,
	sequenceRepo *repositories.SequenceRepository,
	templateRepo *repositories.TemplateRepository,
	scheduledRepo *repositories.ScheduledEmailRepository,
	sentRepo *repositories.SentEmailRepository,
) *ProspectService {
	return &ProspectService{
		prospectRepo:  prospectRepo,
		sequenceRepo:  sequenceRepo,
		templateRepo:  templateRepo,
		scheduledRepo: scheduledRepo,
		sentRepo:      sentRepo,
	}
}

// Create validates the email format and stores a new prospect
func (s *ProspectService) Create(p *models.Prospect) error {
	if err := checkmail.ValidateFormat(p.Email); err != nil {
		return ErrInvalidEmail
	}
	return s.prospectRepo.Create(p)
}

// GetByID retrieves a prospect
func (s *ProspectService) GetByID(id string) (*models.Prospect, error) {
	p, err := s.prospectRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProspectNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns prospects, optionally filtered on sequence assignment, with
// sequence names and per-prospect step progress attached.
func (s *ProspectService) List(assigned *bool) ([]*ProspectView, error) {
	prospects, err := s.prospectRepo.GetAll(assigned)
	if err != nil {
		return nil, err
	}

	sequences, err := s.sequenceRepo.GetAll()
	if err != nil {
		return nil, err
	}
	seqNames := make(map[string]string, len(sequences))
	stepTotals := make(map[string]int, len(sequences))
	for _, seq := range sequences {
		seqNames[seq.ID] = seq.Name
		steps, err := s.sequenceRepo.GetSteps(seq.ID)
		if err != nil {
			return nil, err
		}
		stepTotals[seq.ID] = len(steps)
	}

	views := make([]*ProspectView, 0, len(prospects))
	for _, p := range prospects {
		view := &ProspectView{Prospect: p}
		if p.SequenceID != nil {
			if name, ok := seqNames[*p.SequenceID]; ok {
				view.SequenceName = &name
			}
			view.StepsTotal = stepTotals[*p.SequenceID]
		}

		scheduled, err := s.scheduledRepo.GetByProspectID(p.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range scheduled {
			if e.Status == models.ScheduleStatusSent || e.Status == models.ScheduleStatusFailed {
				view.StepsDone++
			}
		}
		if view.StepsTotal > 0 {
			view.ProgressPct = view.StepsDone * 100 / view.StepsTotal
		}
		views = append(views, view)
	}

	return views, nil
}

// Update updates a prospect's fields
func (s *ProspectService) Update(p *models.Prospect) error {
	if err := checkmail.ValidateFormat(p.Email); err != nil {
		return ErrInvalidEmail
	}
	if _, err := s.GetByID(p.ID); err != nil {
		return err
	}
	return s.prospectRepo.Update(p)
}

// Delete removes a prospect together with its scheduled and sent rows
func (s *ProspectService) Delete(id string) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	if err := s.scheduledRepo.DeleteByProspect(id); err != nil {
		return fmt.Errorf("deleting scheduled emails: %w", err)
	}
	if err := s.sentRepo.DeleteByProspect(id); err != nil {
		return fmt.Errorf("deleting sent emails: %w", err)
	}
	return s.prospectRepo.Delete(id)
}

// Unsubscribe flips the flag and purges the prospect's pending schedule, so
// no further sequence emails go out.
func (s *ProspectService) Unsubscribe(id string) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	if err := s.prospectRepo.SetUnsubscribed(id, true); err != nil {
		return err
	}
	return s.scheduledRepo.DeletePendingByProspect(id)
}

// TimelineEntry is one row of a prospect's schedule history
type TimelineEntry struct {
	StepNumber   int                   `json:"step_number"`
	TemplateName string                `json:"template_name"`
	Subject      string                `json:"subject"`
	ScheduledAt  time.Time             `json:"scheduled_at"`
	SentAt       *time.Time            `json:"sent_at"`
	Status       models.ScheduleStatus `json:"status"`
}

// Timeline returns a prospect's scheduled emails in send order, enriched
// with template names and numbered as steps.
func (s *ProspectService) Timeline(prospectID string) ([]*TimelineEntry, error) {
	if _, err := s.GetByID(prospectID); err != nil {
		return nil, err
	}

	scheduled, err := s.scheduledRepo.GetByProspectID(prospectID)
	if err != nil {
		return nil, err
	}

	entries := make([]*TimelineEntry, 0, len(scheduled))
	for i, e := range scheduled {
		entry := &TimelineEntry{
			StepNumber:   i + 1,
			TemplateName: "N/A",
			ScheduledAt:  e.SendAt,
			SentAt:       e.SentAt,
			Status:       e.Status,
		}
		if tpl, err := s.templateFor(e.TemplateID); err == nil {
			entry.TemplateName = tpl.Name
			entry.Subject = tpl.Subject
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *ProspectService) templateFor(id string) (*models.EmailTemplate, error) {
	return s.templateRepo.GetByID(id)
}
