package services

import (
	"fmt"
	"time"

	"coldreach/internal/models"
	"coldreach/internal/repositories"
	"coldreach/pkg/logger"
)

// Placement is one desired send: a prospect, a step and a target calendar day
type Placement struct {
	ProspectID string
	Step       *models.SequenceStep
	Day        time.Time
}

// OverflowPolicy decides what happens to placements that exceed a day's
// remaining capacity. It returns the placements to retry on a different
// day; returning nil drops them.
type OverflowPolicy func(day time.Time, overflow []Placement) []Placement

// DropOverflow discards placements once a day's capacity is exhausted.
// Swap in a roll-forward policy to defer them to the next day instead.
func DropOverflow(day time.Time, overflow []Placement) []Placement {
	return nil
}

// CapacityScheduler turns placements into persisted pending rows while
// enforcing the global daily cap at schedule-creation time. Dispatch
// enforces the same cap again at send time, because independent cohorts may
// be materialized on the same day.
type CapacityScheduler struct {
	allocator *SlotAllocator
	window    *models.SendWindow
	maxPerDay int
	overflow  OverflowPolicy
	slotGrace time.Duration
	nowFn     func() time.Time
}

// NewCapacityScheduler creates a CapacityScheduler
func NewCapacityScheduler(allocator *SlotAllocator, window *models.SendWindow, maxPerDay int, slotGrace time.Duration) *CapacityScheduler {
	return &CapacityScheduler{
		allocator: allocator,
		window:    window,
		maxPerDay: maxPerDay,
		overflow:  DropOverflow,
		slotGrace: slotGrace,
		nowFn:     time.Now,
	}
}

// SetOverflowPolicy replaces the default drop policy
func (s *CapacityScheduler) SetOverflowPolicy(policy OverflowPolicy) {
	s.overflow = policy
}

// SetNowFunc replaces the clock, for tests
func (s *CapacityScheduler) SetNowFunc(now func() time.Time) {
	s.nowFn = now
}

// CommitPlacements groups placements by target day, reserves remaining
// capacity per day and inserts one pending row per allocated slot, all
// inside the given cohort transaction. Placements beyond a day's capacity
// go to the overflow policy; within a day the input order decides who gets
// the remaining slots. Returns the number of rows created.
func (s *CapacityScheduler) CommitPlacements(tx *repositories.CohortTx, sequenceID string, placements []Placement) (int, error) {
	byDay := make(map[string][]Placement)
	var dayOrder []string
	dayOf := make(map[string]time.Time)

	for _, p := range placements {
		key := p.Day.Format("2006-01-02")
		if _, seen := byDay[key]; !seen {
			dayOrder = append(dayOrder, key)
			dayOf[key] = p.Day
		}
		byDay[key] = append(byDay[key], p)
	}

	created := 0
	for _, key := range dayOrder {
		day := dayOf[key]
		dayPlacements := byDay[key]

		already, err := tx.CountOnDay(s.window.DayStart(day))
		if err != nil {
			return created, fmt.Errorf("counting scheduled emails on %s: %w", key, err)
		}

		slotsLeft := s.maxPerDay - already
		if slotsLeft <= 0 {
			logger.WithField("day", key).Warnf("daily capacity exhausted, dropping %d placements", len(dayPlacements))
			s.overflow(day, dayPlacements)
			continue
		}

		kept := dayPlacements
		if len(kept) > slotsLeft {
			s.overflow(day, kept[slotsLeft:])
			kept = kept[:slotsLeft]
		}

		slots, err := s.allocator.AllocateSlots(day, len(kept), s.window)
		if err != nil {
			return created, fmt.Errorf("allocating %d slots on %s: %w", len(kept), key, err)
		}

		now := s.nowFn()
		for i, p := range kept {
			sendAt := slots[i]
			// A slot already in the past would fire immediately on the
			// next sweep; bump it forward by the grace interval instead.
			if sendAt.Before(now) {
				sendAt = now.Add(s.slotGrace)
			}

			email := models.NewScheduledEmail(p.ProspectID, p.Step.TemplateID, &sequenceID, sendAt)
			if err := tx.Insert(email); err != nil {
				return created, fmt.Errorf("inserting scheduled email: %w", err)
			}
			created++
		}
	}

	return created, nil
}
