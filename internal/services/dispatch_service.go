package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coldreach/internal/mailer"
	"coldreach/internal/models"
	"coldreach/internal/repositories"
	"coldreach/pkg/logger"
)

// Dispatch outcome messages, also returned over HTTP
const (
	OutcomeOutsideWindow = "outside window"
	OutcomeDailyLimit    = "daily limit reached"
)

// DispatchResult reports one sweep
type DispatchResult struct {
	Outcome   string `json:"message"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

// DispatchService walks due pending rows and sends them through the mail
// capability, exactly once per row. Each invocation is a single discrete
// sweep, safe to trigger from a timer or by hand.
type DispatchService struct {
	scheduledRepo *repositories.ScheduledEmailRepository
	sentRepo      *repositories.SentEmailRepository
	prospectRepo  *repositories.ProspectRepository
	templateRepo  *repositories.TemplateRepository
	sequenceRepo  *repositories.SequenceRepository
	mail          mailer.Mailer
	window        *models.SendWindow
	maxPerDay     int
	defaultBCC    string
}

// NewDispatchService creates a DispatchService
func NewDispatchService(
	scheduledRepo *repositories.ScheduledEmailRepository,
	sentRepo *repositories.SentEmailRepository,
	prospectRepo *repositories.ProspectRepository,
	templateRepo *repositories.TemplateRepository,
	sequenceRepo *repositories.SequenceRepository,
	mail mailer.Mailer,
	window *models.SendWindow,
	maxPerDay int,
	defaultBCC string,
) *DispatchService {
	return &DispatchService{
		scheduledRepo: scheduledRepo,
		sentRepo:      sentRepo,
		prospectRepo:  prospectRepo,
		templateRepo:  templateRepo,
		sequenceRepo:  sequenceRepo,
		mail:          mail,
		window:        window,
		maxPerDay:     maxPerDay,
		defaultBCC:    defaultBCC,
	}
}

// Run performs one dispatch sweep at the given instant: window check, daily
// cap check, then due records in send_at order until the cap cuts the batch.
func (s *DispatchService) Run(now time.Time) (*DispatchResult, error) {
	if !s.window.IsEligible(now) {
		return &DispatchResult{Outcome: OutcomeOutsideWindow}, nil
	}

	localDay := s.window.LocalTime(now)
	sentToday, err := s.sentRepo.CountSentOn(localDay)
	if err != nil {
		return nil, fmt.Errorf("counting emails sent today: %w", err)
	}
	if sentToday >= s.maxPerDay {
		return &DispatchResult{Outcome: OutcomeDailyLimit}, nil
	}

	return s.sweep(now, sentToday, true)
}

// Force performs a sweep ignoring the send window and the daily cap. It is
// an operator escape hatch for recovery and testing, not part of the normal
// cadence; rows are still claimed and outcomes still recorded exactly once.
func (s *DispatchService) Force(now time.Time) (*DispatchResult, error) {
	return s.sweep(now, 0, false)
}

func (s *DispatchService) sweep(now time.Time, sentToday int, enforceCap bool) (*DispatchResult, error) {
	due, err := s.scheduledRepo.GetDue(now)
	if err != nil {
		return nil, fmt.Errorf("querying due emails: %w", err)
	}

	result := &DispatchResult{}
	for _, email := range due {
		// Several records may have become due since the last cap check;
		// re-check per record and cut the batch when the cap is hit.
		if enforceCap && sentToday >= s.maxPerDay {
			break
		}

		prospect, template, ok, err := s.resolve(email)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.Skipped++
			continue
		}

		claimed, err := s.scheduledRepo.Claim(email.ID)
		if err != nil {
			return nil, fmt.Errorf("claiming scheduled email %s: %w", email.ID, err)
		}
		if !claimed {
			// Another sweep got here first.
			result.Skipped++
			continue
		}

		context := prospect.RenderContext()
		subject := mailer.Render(template.Subject, context)
		body := mailer.Render(template.Body, context)

		sent := s.mail.Send(prospect.Email, subject, body, s.bccFor(email), nil)

		if sent {
			email.MarkSent(now)
		} else {
			email.MarkFailed(now)
		}

		audit := models.NewSentEmail(prospect.Email, subject, body, now, models.SentStatus(email.Status))
		audit.ProspectID = &prospect.ID
		audit.TemplateID = &template.ID
		audit.SequenceID = email.SequenceID

		if err := s.scheduledRepo.RecordOutcome(email, audit); err != nil {
			// The send already happened; surfacing the error without
			// retrying is the at-least-once trade-off.
			return result, fmt.Errorf("recording outcome for %s: %w", email.ID, err)
		}

		result.Processed++
		if sent {
			result.Sent++
			sentToday++
		} else {
			result.Failed++
		}
	}

	result.Outcome = fmt.Sprintf("processed %d", result.Processed)
	logger.WithFields(map[string]interface{}{
		"processed": result.Processed,
		"sent":      result.Sent,
		"failed":    result.Failed,
		"skipped":   result.Skipped,
	}).Infof("dispatch sweep finished")

	return result, nil
}

// resolve looks up the prospect and template for a scheduled row. Orphaned
// references and unsubscribed prospects are skipped, not fatal.
func (s *DispatchService) resolve(email *models.ScheduledEmail) (*models.Prospect, *models.EmailTemplate, bool, error) {
	prospect, err := s.prospectRepo.GetByID(email.ProspectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.WithField("scheduled_id", email.ID).Warnf("skipping schedule with missing prospect %s", email.ProspectID)
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("loading prospect %s: %w", email.ProspectID, err)
	}
	if prospect.Unsubscribed {
		logger.WithField("prospect_id", prospect.ID).Infof("skipping unsubscribed prospect")
		return nil, nil, false, nil
	}

	template, err := s.templateRepo.GetByID(email.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.WithField("scheduled_id", email.ID).Warnf("skipping schedule with missing template %s", email.TemplateID)
			return nil, nil, false, nil
		}
		return nil, nil, false, fmt.Errorf("loading template %s: %w", email.TemplateID, err)
	}

	return prospect, template, true, nil
}

// bccFor resolves the BCC address: the sequence's own BCC when set,
// otherwise the configured default.
func (s *DispatchService) bccFor(email *models.ScheduledEmail) string {
	if email.SequenceID != nil {
		if seq, err := s.sequenceRepo.GetByID(*email.SequenceID); err == nil && seq.BCC != nil && *seq.BCC != "" {
			return *seq.BCC
		}
	}
	return s.defaultBCC
}
