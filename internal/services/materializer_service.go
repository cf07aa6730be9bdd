package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
	"coldreach/pkg/logger"
)

// ErrSequenceNotFound is returned when materializing against an unknown sequence
var ErrSequenceNotFound = errors.New("sequence not found")

// MaterializeResult reports what a cohort materialization did
type MaterializeResult struct {
	Assigned  int `json:"assigned"`
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
}

// MaterializerService turns a sequence assignment into concrete per-prospect,
// per-step scheduled rows: a first-touch day ventilated over a window of
// calendar days, each step placed on the next working day after its delay.
type MaterializerService struct {
	prospectRepo  *repositories.ProspectRepository
	sequenceRepo  *repositories.SequenceRepository
	scheduledRepo *repositories.ScheduledEmailRepository
	allocator     *SlotAllocator
	scheduler     *CapacityScheduler
	window        *models.SendWindow
}

// NewMaterializerService creates a MaterializerService
func NewMaterializerService(
	prospectRepo *repositories.ProspectRepository,
	sequenceRepo *repositories.SequenceRepository,
	scheduledRepo *repositories.ScheduledEmailRepository,
	allocator *SlotAllocator,
	scheduler *CapacityScheduler,
	window *models.SendWindow,
) *MaterializerService {
	return &MaterializerService{
		prospectRepo:  prospectRepo,
		sequenceRepo:  sequenceRepo,
		scheduledRepo: scheduledRepo,
		allocator:     allocator,
		scheduler:     scheduler,
		window:        window,
	}
}

// Materialize assigns sequenceID to each prospect and creates its scheduled
// rows, spreading first-touch days over ventilateDays starting at startDate.
// Re-materializing a prospect purges its previous pending rows first, so
// repeating the call yields the same final pending-row set. Missing
// prospects are skipped and counted, never fatal. A stepless sequence is a
// no-op reported as zero assignments.
func (s *MaterializerService) Materialize(prospectIDs []string, sequenceID string, ventilateDays int, startDate time.Time) (*MaterializeResult, error) {
	if _, err := s.sequenceRepo.GetByID(sequenceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSequenceNotFound
		}
		return nil, fmt.Errorf("loading sequence: %w", err)
	}

	steps, err := s.sequenceRepo.GetSteps(sequenceID)
	if err != nil {
		return nil, fmt.Errorf("loading sequence steps: %w", err)
	}

	result := &MaterializeResult{}
	if len(steps) == 0 {
		return result, nil
	}

	tx, err := s.scheduledRepo.BeginCohort()
	if err != nil {
		return nil, fmt.Errorf("starting cohort transaction: %w", err)
	}
	defer tx.Rollback()

	var placements []Placement
	for _, pid := range prospectIDs {
		if _, err := s.prospectRepo.GetByID(pid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				logger.WithField("prospect_id", pid).Warnf("skipping unknown prospect during materialization")
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("loading prospect %s: %w", pid, err)
		}

		if err := tx.AssignSequence(pid, sequenceID); err != nil {
			return nil, fmt.Errorf("assigning sequence to prospect %s: %w", pid, err)
		}
		if err := tx.DeletePending(pid); err != nil {
			return nil, fmt.Errorf("purging pending schedule for prospect %s: %w", pid, err)
		}
		result.Assigned++

		firstTouch := startDate.AddDate(0, 0, s.allocator.VentilationOffset(ventilateDays))
		for _, step := range steps {
			targetDay := s.window.NextWorkingDay(firstTouch.AddDate(0, 0, step.DelayDays))
			placements = append(placements, Placement{
				ProspectID: pid,
				Step:       step,
				Day:        targetDay,
			})
		}
	}

	created, err := s.scheduler.CommitPlacements(tx, sequenceID, placements)
	if err != nil {
		return nil, err
	}
	result.Scheduled = created

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cohort: %w", err)
	}

	return result, nil
}
