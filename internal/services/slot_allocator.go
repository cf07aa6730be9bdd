package services

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"coldreach/internal/models"
)

// ErrCapacityExceeded is returned when more slots are requested than the
// window has minutes. It is a hard precondition failure: nothing is
// allocated.
var ErrCapacityExceeded = errors.New("requested slots exceed window capacity")

// SlotAllocator produces randomized, distinct send timestamps inside a
// day's window. Distinct-but-sorted minutes avoid bursty, bot-like delivery
// while keeping a stable per-day dispatch order.
type SlotAllocator struct {
	rng *rand.Rand
	mu  sync.Mutex
}

// NewSlotAllocator creates a SlotAllocator with the given randomness source.
// Tests pass a seeded source to assert exact slot sets.
func NewSlotAllocator(src rand.Source) *SlotAllocator {
	return &SlotAllocator{rng: rand.New(src)}
}

// AllocateSlots returns count distinct minute-granularity timestamps,
// uniformly sampled without replacement from [StartHour:00, EndHour:00) on
// the calendar day of day, sorted ascending.
func (a *SlotAllocator) AllocateSlots(day time.Time, count int, window *models.SendWindow) ([]time.Time, error) {
	minutes := (window.EndHour - window.StartHour) * 60
	if count > minutes {
		return nil, ErrCapacityExceeded
	}
	if count <= 0 {
		return nil, nil
	}

	a.mu.Lock()
	picks := a.rng.Perm(minutes)[:count]
	a.mu.Unlock()
	sort.Ints(picks)

	loc := window.Location
	if loc == nil {
		loc = time.UTC
	}
	base := time.Date(day.Year(), day.Month(), day.Day(), window.StartHour, 0, 0, 0, loc)

	slots := make([]time.Time, count)
	for i, m := range picks {
		slots[i] = base.Add(time.Duration(m) * time.Minute)
	}
	return slots, nil
}

// VentilationOffset picks a first-touch day offset in [0, ventilateDays-1],
// spreading a cohort's first email over a window of calendar days.
// A window of one day or less always yields offset zero.
func (a *SlotAllocator) VentilationOffset(ventilateDays int) int {
	if ventilateDays <= 1 {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(ventilateDays)
}
