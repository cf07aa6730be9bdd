package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldreach/internal/models"
)

func TestGetStepsCanonicalOrder(t *testing.T) {
	repo := NewSequenceRepository(newTestDB(t))

	seq := models.NewSequence("Outbound")
	require.NoError(t, repo.Create(seq))

	// Inserted out of order on purpose.
	followUp := models.NewSequenceStep(seq.ID, "t-followup", 3)
	intro := models.NewSequenceStep(seq.ID, "t-intro", 0)
	breakUp := models.NewSequenceStep(seq.ID, "t-breakup", 7)
	require.NoError(t, repo.CreateStep(followUp))
	require.NoError(t, repo.CreateStep(intro))
	require.NoError(t, repo.CreateStep(breakUp))

	steps, err := repo.GetSteps(seq.ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, "t-intro", steps[0].TemplateID)
	assert.Equal(t, "t-followup", steps[1].TemplateID)
	assert.Equal(t, "t-breakup", steps[2].TemplateID)

	t.Run("Equal delays order by creation time", func(t *testing.T) {
		seq := models.NewSequence("Same day")
		require.NoError(t, repo.Create(seq))

		first := models.NewSequenceStep(seq.ID, "t-first", 2)
		second := models.NewSequenceStep(seq.ID, "t-second", 2)
		second.CreatedAt = first.CreatedAt.Add(time.Second)
		require.NoError(t, repo.CreateStep(second))
		require.NoError(t, repo.CreateStep(first))

		steps, err := repo.GetSteps(seq.ID)
		require.NoError(t, err)
		require.Len(t, steps, 2)
		assert.Equal(t, "t-first", steps[0].TemplateID)
		assert.Equal(t, "t-second", steps[1].TemplateID)
	})
}

func TestDeleteSequenceRemovesSteps(t *testing.T) {
	repo := NewSequenceRepository(newTestDB(t))

	seq := models.NewSequence("Outbound")
	require.NoError(t, repo.Create(seq))
	require.NoError(t, repo.CreateStep(models.NewSequenceStep(seq.ID, "t1", 0)))
	require.NoError(t, repo.CreateStep(models.NewSequenceStep(seq.ID, "t1", 3)))

	require.NoError(t, repo.Delete(seq.ID))

	_, err := repo.GetByID(seq.ID)
	assert.Error(t, err)

	steps, err := repo.GetSteps(seq.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestCountStepsByTemplate(t *testing.T) {
	repo := NewSequenceRepository(newTestDB(t))

	seq := models.NewSequence("Outbound")
	require.NoError(t, repo.Create(seq))
	require.NoError(t, repo.CreateStep(models.NewSequenceStep(seq.ID, "t-used", 0)))

	count, err := repo.CountStepsByTemplate("t-used")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.CountStepsByTemplate("t-unused")
	require.NoError(t, err)
	assert.Zero(t, count)
}
