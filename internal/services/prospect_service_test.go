package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldreach/internal/models"
)

func newProspectService(env *testEnv) *ProspectService {
	return NewProspectService(env.prospectRepo, env.sequenceRepo, env.templateRepo, env.scheduledRepo, env.sentRepo)
}

func TestProspectCreateValidatesEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := newProspectService(env)

	require.NoError(t, svc.Create(models.NewProspect("Ada", "ada@example.com")))

	err := svc.Create(models.NewProspect("Bad", "not-an-email"))
	assert.ErrorIs(t, err, ErrInvalidEmail)
}

func TestProspectUnsubscribePurgesPending(t *testing.T) {
	env := newTestEnv(t)
	svc := newProspectService(env)

	ada := env.createProspect(t, "Ada", "ada@example.com")
	tmpl := env.createTemplate(t, "Intro")

	pending := models.NewScheduledEmail(ada.ID, tmpl.ID, nil, time.Now().Add(time.Hour))
	require.NoError(t, env.scheduledRepo.Create(pending))
	done := models.NewScheduledEmail(ada.ID, tmpl.ID, nil, time.Now().Add(-time.Hour))
	done.MarkSent(time.Now())
	require.NoError(t, env.scheduledRepo.Create(done))

	require.NoError(t, svc.Unsubscribe(ada.ID))

	stored, err := env.prospectRepo.GetByID(ada.ID)
	require.NoError(t, err)
	assert.True(t, stored.Unsubscribed)

	// Pending rows are gone, the sent history stays.
	assert.Empty(t, env.pendingFor(t, ada.ID))
	all, err := env.scheduledRepo.GetByProspectID(ada.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProspectDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	svc := newProspectService(env)

	ada := env.createProspect(t, "Ada", "ada@example.com")
	tmpl := env.createTemplate(t, "Intro")
	require.NoError(t, env.scheduledRepo.Create(models.NewScheduledEmail(ada.ID, tmpl.ID, nil, time.Now())))

	require.NoError(t, svc.Delete(ada.ID))

	_, err := svc.GetByID(ada.ID)
	assert.ErrorIs(t, err, ErrProspectNotFound)
	all, err := env.scheduledRepo.GetByProspectID(ada.ID)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.ErrorIs(t, svc.Delete("no-such-prospect"), ErrProspectNotFound)
}

func TestProspectTimeline(t *testing.T) {
	env := newTestEnv(t)
	svc := newProspectService(env)

	ada := env.createProspect(t, "Ada", "ada@example.com")
	tmpl := env.createTemplate(t, "Intro")

	first := models.NewScheduledEmail(ada.ID, tmpl.ID, nil, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	first.MarkSent(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	second := models.NewScheduledEmail(ada.ID, tmpl.ID, nil, time.Date(2024, 1, 4, 10, 0, 0, 0, time.UTC))
	orphan := models.NewScheduledEmail(ada.ID, "deleted-template", nil, time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC))
	for _, e := range []*models.ScheduledEmail{first, second, orphan} {
		require.NoError(t, env.scheduledRepo.Create(e))
	}

	entries, err := svc.Timeline(ada.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, 1, entries[0].StepNumber)
	assert.Equal(t, models.ScheduleStatusSent, entries[0].Status)
	assert.Equal(t, "Intro", entries[0].TemplateName)
	assert.Equal(t, models.ScheduleStatusPending, entries[1].Status)
	// A deleted template still leaves a readable timeline row.
	assert.Equal(t, "N/A", entries[2].TemplateName)
}

func TestTemplateDeleteRefusedWhileInUse(t *testing.T) {
	env := newTestEnv(t)
	svc := NewTemplateService(env.templateRepo, env.sequenceRepo)

	tmpl := env.createTemplate(t, "Intro")
	env.createSequence(t, "Outbound", tmpl.ID, 0)

	assert.ErrorIs(t, svc.Delete(tmpl.ID), ErrTemplateInUse)

	unused := env.createTemplate(t, "Unused")
	require.NoError(t, svc.Delete(unused.ID))
	_, err := svc.GetByID(unused.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestSequenceDeleteDetachesProspects(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSequenceService(env.sequenceRepo, env.templateRepo, env.prospectRepo, env.scheduledRepo)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)

	ada := env.createProspect(t, "Ada", "ada@example.com")
	ada.SequenceID = &seq.ID
	require.NoError(t, env.prospectRepo.Update(ada))
	require.NoError(t, env.scheduledRepo.Create(models.NewScheduledEmail(ada.ID, tmpl.ID, &seq.ID, time.Now().Add(time.Hour))))

	require.NoError(t, svc.Delete(seq.ID))

	stored, err := env.prospectRepo.GetByID(ada.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SequenceID)
	assert.Empty(t, env.pendingFor(t, ada.ID))
}
