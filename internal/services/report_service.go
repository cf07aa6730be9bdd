package services

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
)

// SentEmailView is an audit row with template and sequence names attached
type SentEmailView struct {
	*models.SentEmail
	TemplateName *string `json:"template_name"`
	SequenceName *string `json:"sequence_name"`
}

// AnalyticsSummary aggregates the audit log for the reporting endpoint
type AnalyticsSummary struct {
	TotalSent   int              `json:"total_sent"`
	TotalFailed int              `json:"total_failed"`
	OpenRate    float64          `json:"open_rate"`
	SentToday   int              `json:"sent_today"`
	Recent      []*SentEmailView `json:"recent"`
}

// ReportService builds reporting views over the sent-email audit log
type ReportService struct {
	sentRepo     *repositories.SentEmailRepository
	templateRepo *repositories.TemplateRepository
	sequenceRepo *repositories.SequenceRepository
	window       *models.SendWindow
}

// NewReportService creates a ReportService
func NewReportService(
	sentRepo *repositories.SentEmailRepository,
	templateRepo *repositories.TemplateRepository,
	sequenceRepo *repositories.SequenceRepository,
	window *models.SendWindow,
) *ReportService {
	return &ReportService{
		sentRepo:     sentRepo,
		templateRepo: templateRepo,
		sequenceRepo: sequenceRepo,
		window:       window,
	}
}

// ListSent returns the audit log most recent first, with template and
// sequence names resolved.
func (s *ReportService) ListSent() ([]*SentEmailView, error) {
	emails, err := s.sentRepo.GetAll()
	if err != nil {
		return nil, err
	}

	templateNames, err := s.templateNames()
	if err != nil {
		return nil, err
	}
	sequenceNames, err := s.sequenceNames()
	if err != nil {
		return nil, err
	}

	views := make([]*SentEmailView, 0, len(emails))
	for _, e := range emails {
		view := &SentEmailView{SentEmail: e}
		if e.TemplateID != nil {
			if name, ok := templateNames[*e.TemplateID]; ok {
				view.TemplateName = &name
			}
		}
		if e.SequenceID != nil {
			if name, ok := sequenceNames[*e.SequenceID]; ok {
				view.SequenceName = &name
			}
		}
		views = append(views, view)
	}

	return views, nil
}

// Summary aggregates totals, open rate and today's count
func (s *ReportService) Summary(now time.Time) (*AnalyticsSummary, error) {
	total, err := s.sentRepo.CountAll()
	if err != nil {
		return nil, err
	}
	failed, err := s.sentRepo.CountByStatus(models.SentStatusFailed)
	if err != nil {
		return nil, err
	}
	opened, err := s.sentRepo.CountByStatus(models.SentStatusOpened)
	if err != nil {
		return nil, err
	}
	sentToday, err := s.sentRepo.CountSentOn(s.window.LocalTime(now))
	if err != nil {
		return nil, err
	}

	summary := &AnalyticsSummary{
		TotalSent:   total,
		TotalFailed: failed,
		SentToday:   sentToday,
	}
	if total > 0 {
		summary.OpenRate = float64(opened) / float64(total) * 100
	}

	recent, err := s.ListSent()
	if err != nil {
		return nil, err
	}
	if len(recent) > 10 {
		recent = recent[:10]
	}
	summary.Recent = recent

	return summary, nil
}

// ExportXLSX writes the audit log as a spreadsheet
func (s *ReportService) ExportXLSX(w io.Writer) error {
	views, err := s.ListSent()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sent Emails"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Recipient", "Subject", "Sent At", "Status", "Template", "Sequence"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, v := range views {
		values := []interface{}{
			v.Recipient,
			v.Subject,
			v.SentAt.Format("2006-01-02 15:04"),
			string(v.Status),
			deref(v.TemplateName),
			deref(v.SequenceName),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing spreadsheet: %w", err)
	}
	return nil
}

func (s *ReportService) templateNames() (map[string]string, error) {
	templates, err := s.templateRepo.GetAll()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(templates))
	for _, t := range templates {
		names[t.ID] = t.Name
	}
	return names, nil
}

func (s *ReportService) sequenceNames() (map[string]string, error) {
	sequences, err := s.sequenceRepo.GetAll()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(sequences))
	for _, seq := range sequences {
		names[seq.ID] = seq.Name
	}
	return names, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
