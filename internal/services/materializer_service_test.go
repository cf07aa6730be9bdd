package services

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldreach/internal/models"
)

// fixedNow keeps the past-slot bump out of the way so tests can assert on
// calendar days directly.
var fixedNow = time.Date(2023, 12, 31, 12, 0, 0, 0, time.UTC)

func newMaterializer(env *testEnv, maxPerDay int, seed int64) *MaterializerService {
	window := models.NewBusinessWindow(9, 21, time.UTC)
	allocator := NewSlotAllocator(rand.NewSource(seed))
	scheduler := NewCapacityScheduler(allocator, window, maxPerDay, 30*time.Minute)
	scheduler.SetNowFunc(func() time.Time { return fixedNow })
	return NewMaterializerService(env.prospectRepo, env.sequenceRepo, env.scheduledRepo, allocator, scheduler, window)
}

func TestMaterializeBasicPlacement(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0, 3)
	prospect := env.createProspect(t, "Ada", "ada@example.com")

	// Monday.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize([]string{prospect.ID}, seq.ID, 1, start)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Assigned)
	assert.Equal(t, 2, result.Scheduled)
	assert.Equal(t, 0, result.Skipped)

	pending := env.pendingFor(t, prospect.ID)
	require.Len(t, pending, 2)
	assert.Equal(t, "2024-01-01", dayOf(pending[0].SendAt))
	assert.Equal(t, "2024-01-04", dayOf(pending[1].SendAt))

	for _, e := range pending {
		assert.Equal(t, tmpl.ID, e.TemplateID)
		require.NotNil(t, e.SequenceID)
		assert.Equal(t, seq.ID, *e.SequenceID)
		local := e.SendAt.UTC()
		assert.GreaterOrEqual(t, local.Hour(), 9)
		assert.Less(t, local.Hour(), 21)
	}

	stored, err := env.prospectRepo.GetByID(prospect.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SequenceID)
	assert.Equal(t, seq.ID, *stored.SequenceID)
}

func TestMaterializeWeekendRollsForward(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)
	prospect := env.createProspect(t, "Ada", "ada@example.com")

	// Saturday, so the only step lands on Monday.
	saturday := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize([]string{prospect.ID}, seq.ID, 1, saturday)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scheduled)

	pending := env.pendingFor(t, prospect.ID)
	require.Len(t, pending, 1)
	assert.Equal(t, "2024-01-08", dayOf(pending[0].SendAt))
}

func TestMaterializeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0, 2)
	prospect := env.createProspect(t, "Ada", "ada@example.com")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Materialize([]string{prospect.ID}, seq.ID, 1, start)
	require.NoError(t, err)
	result, err := svc.Materialize([]string{prospect.ID}, seq.ID, 1, start)
	require.NoError(t, err)

	// The second run replaces the pending rows instead of stacking them.
	assert.Equal(t, 2, result.Scheduled)
	assert.Len(t, env.pendingFor(t, prospect.ID), 2)
}

func TestMaterializePreservesSentRows(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0, 2)
	prospect := env.createProspect(t, "Ada", "ada@example.com")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Materialize([]string{prospect.ID}, seq.ID, 1, start)
	require.NoError(t, err)

	// Dispatch the first row, then rematerialize the prospect.
	pending := env.pendingFor(t, prospect.ID)
	require.Len(t, pending, 2)
	first := pending[0]
	claimed, err := env.scheduledRepo.Claim(first.ID)
	require.NoError(t, err)
	require.True(t, claimed)
	sentAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	first.MarkSent(sentAt)
	audit := models.NewSentEmail(prospect.Email, "Hello Ada", "Hi Ada", sentAt, models.SentStatusSent)
	require.NoError(t, env.scheduledRepo.RecordOutcome(first, audit))

	_, err = svc.Materialize([]string{prospect.ID}, seq.ID, 1, start)
	require.NoError(t, err)

	all, err := env.scheduledRepo.GetByProspectID(prospect.ID)
	require.NoError(t, err)
	// One immutable sent row plus the two recreated pending rows.
	require.Len(t, all, 3)
	assert.Len(t, env.pendingFor(t, prospect.ID), 2)
}

func TestMaterializeSkipsUnknownProspects(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)
	prospect := env.createProspect(t, "Ada", "ada@example.com")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize([]string{prospect.ID, "no-such-prospect"}, seq.ID, 1, start)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Assigned)
	assert.Equal(t, 1, result.Scheduled)
	assert.Equal(t, 1, result.Skipped)
}

func TestMaterializeUnknownSequence(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	_, err := svc.Materialize([]string{"whatever"}, "no-such-sequence", 1, time.Now())
	assert.ErrorIs(t, err, ErrSequenceNotFound)
}

func TestMaterializeSteplessSequence(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 100, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Empty", tmpl.ID)
	prospect := env.createProspect(t, "Ada", "ada@example.com")

	result, err := svc.Materialize([]string{prospect.ID}, seq.ID, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Zero(t, result.Assigned)
	assert.Zero(t, result.Scheduled)
	assert.Empty(t, env.pendingFor(t, prospect.ID))
}

func TestMaterializeDailyCapacity(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 3, 1)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)

	var ids []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		p := env.createProspect(t, name, name+"@example.com")
		ids = append(ids, p.ID)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize(ids, seq.ID, 1, start)
	require.NoError(t, err)

	// All five get the assignment, only three fit under the daily cap.
	assert.Equal(t, 5, result.Assigned)
	assert.Equal(t, 3, result.Scheduled)

	t.Run("A later cohort sees the day as full", func(t *testing.T) {
		late := env.createProspect(t, "late", "late@example.com")
		result, err := svc.Materialize([]string{late.ID}, seq.ID, 1, start)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Assigned)
		assert.Zero(t, result.Scheduled)
	})
}

func TestMaterializeCapacityAcrossUTCMidnight(t *testing.T) {
	env := newTestEnv(t)

	// A late window in a west-of-UTC zone: its slots fall on the next UTC
	// day, so the capacity count must use business-day bounds to see them.
	loc := time.FixedZone("UTC-5", -5*60*60)
	window := models.NewBusinessWindow(20, 22, loc)
	allocator := NewSlotAllocator(rand.NewSource(1))
	scheduler := NewCapacityScheduler(allocator, window, 2, 30*time.Minute)
	scheduler.SetNowFunc(func() time.Time { return fixedNow })
	svc := NewMaterializerService(env.prospectRepo, env.sequenceRepo, env.scheduledRepo, allocator, scheduler, window)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)

	cohort := func(names ...string) []string {
		var ids []string
		for _, name := range names {
			p := env.createProspect(t, name, name+"@example.com")
			ids = append(ids, p.ID)
		}
		return ids
	}

	// Monday.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := cohort("a", "b")
	result, err := svc.Materialize(first, seq.ID, 1, start)
	require.NoError(t, err)
	require.Equal(t, 2, result.Scheduled)

	// An independent cohort on the same business day must see it as full.
	second := cohort("c", "d")
	result, err = svc.Materialize(second, seq.ID, 1, start)
	require.NoError(t, err)
	assert.Zero(t, result.Scheduled)

	total := 0
	for _, id := range append(first, second...) {
		total += len(env.pendingFor(t, id))
	}
	assert.Equal(t, 2, total)
}

func TestMaterializeBumpsPastSlots(t *testing.T) {
	env := newTestEnv(t)

	window := models.NewBusinessWindow(9, 21, time.UTC)
	allocator := NewSlotAllocator(rand.NewSource(1))
	grace := 30 * time.Minute
	scheduler := NewCapacityScheduler(allocator, window, 1000, grace)
	// Late in the target day, so most freshly allocated slots lie behind us.
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	scheduler.SetNowFunc(func() time.Time { return now })
	svc := NewMaterializerService(env.prospectRepo, env.sequenceRepo, env.scheduledRepo, allocator, scheduler, window)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)

	var ids []string
	for i := 0; i < 20; i++ {
		p := env.createProspect(t, "p", "p@example.com")
		ids = append(ids, p.ID)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize(ids, seq.ID, 1, start)
	require.NoError(t, err)
	require.Equal(t, 20, result.Scheduled)

	bumped := 0
	for _, id := range ids {
		pending := env.pendingFor(t, id)
		require.Len(t, pending, 1)
		sendAt := pending[0].SendAt
		assert.False(t, sendAt.Before(now), "slot %v left in the past", sendAt)
		if sendAt.Equal(now.Add(grace)) {
			bumped++
		}
	}
	// With only one window hour left, most of the twenty slots start in
	// the past and get moved to now plus the grace interval.
	assert.Greater(t, bumped, 0)
}

func TestMaterializeVentilationSpread(t *testing.T) {
	env := newTestEnv(t)
	svc := newMaterializer(env, 1000, 7)

	tmpl := env.createTemplate(t, "Intro")
	seq := env.createSequence(t, "Outbound", tmpl.ID, 0)

	var ids []string
	for i := 0; i < 30; i++ {
		p := env.createProspect(t, "p", "p@example.com")
		ids = append(ids, p.ID)
	}

	// Monday start with a three working-day ventilation window.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.Materialize(ids, seq.ID, 3, start)
	require.NoError(t, err)
	require.Equal(t, 30, result.Scheduled)

	days := make(map[string]int)
	for _, id := range ids {
		pending := env.pendingFor(t, id)
		require.Len(t, pending, 1)
		days[dayOf(pending[0].SendAt)]++
	}

	allowed := map[string]bool{"2024-01-01": true, "2024-01-02": true, "2024-01-03": true}
	for day := range days {
		assert.True(t, allowed[day], "unexpected first-touch day %s", day)
	}
	// 30 draws over 3 days should hit more than one of them.
	assert.Greater(t, len(days), 1)
}
