package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"coldreach/internal/models"
)

func newReportService(env *testEnv) *ReportService {
	window := models.NewBusinessWindow(9, 21, time.UTC)
	return NewReportService(env.sentRepo, env.templateRepo, env.sequenceRepo, window)
}

func recordAudit(t *testing.T, env *testEnv, recipient string, at time.Time, status models.SentStatus) *models.SentEmail {
	t.Helper()
	e := models.NewScheduledEmail("p", "t", nil, at)
	e.Status = models.ScheduleStatus(status)
	e.SentAt = &at
	require.NoError(t, env.scheduledRepo.Create(e))
	audit := models.NewSentEmail(recipient, "Subject", "Body", at, status)
	require.NoError(t, env.scheduledRepo.RecordOutcome(e, audit))
	return audit
}

func TestReportSummary(t *testing.T) {
	env := newTestEnv(t)
	svc := newReportService(env)

	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	recordAudit(t, env, "a@example.com", now.Add(-time.Hour), models.SentStatusSent)
	recordAudit(t, env, "b@example.com", now.Add(-2*time.Hour), models.SentStatusFailed)
	opened := recordAudit(t, env, "c@example.com", now.AddDate(0, 0, -1), models.SentStatusSent)
	flipped, err := env.sentRepo.MarkOpened(opened.ID)
	require.NoError(t, err)
	require.True(t, flipped)

	summary, err := svc.Summary(now)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalSent)
	assert.Equal(t, 1, summary.TotalFailed)
	// One opened out of three recorded.
	assert.InDelta(t, 100.0/3, summary.OpenRate, 0.01)
	// Yesterday's send does not count toward today.
	assert.Equal(t, 1, summary.SentToday)
	assert.Len(t, summary.Recent, 3)
}

func TestReportSummaryEmpty(t *testing.T) {
	env := newTestEnv(t)
	svc := newReportService(env)

	summary, err := svc.Summary(time.Now())
	require.NoError(t, err)

	assert.Zero(t, summary.TotalSent)
	assert.Zero(t, summary.OpenRate)
	assert.Empty(t, summary.Recent)
}

func TestReportExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	svc := newReportService(env)

	at := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	recordAudit(t, env, "a@example.com", at, models.SentStatusSent)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportXLSX(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sent Emails")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Recipient", rows[0][0])
	assert.Equal(t, "a@example.com", rows[1][0])
}
