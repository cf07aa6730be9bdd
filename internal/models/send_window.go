package models

import (
	"time"
)

// SendWindow describes when dispatching is allowed: which weekdays count as
// working days and the time-of-day window, evaluated in a business timezone.
type SendWindow struct {
	StartHour int            `json:"start_hour"`
	EndHour   int            `json:"end_hour"`
	Location  *time.Location `json:"-"`
	Monday    bool           `json:"monday"`
	Tuesday   bool           `json:"tuesday"`
	Wednesday bool           `json:"wednesday"`
	Thursday  bool           `json:"thursday"`
	Friday    bool           `json:"friday"`
	Saturday  bool           `json:"saturday"`
	Sunday    bool           `json:"sunday"`
}

// NewBusinessWindow returns a Monday-to-Friday window between the given
// hours in the given location.
func NewBusinessWindow(startHour, endHour int, loc *time.Location) *SendWindow {
	return &SendWindow{
		StartHour: startHour,
		EndHour:   endHour,
		Location:  loc,
		Monday:    true,
		Tuesday:   true,
		Wednesday: true,
		Thursday:  true,
		Friday:    true,
	}
}

// IsWorkingDay checks if the given weekday is a working day
func (w *SendWindow) IsWorkingDay(weekday time.Weekday) bool {
	switch weekday {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	default:
		return false
	}
}

// IsWithinWindow checks if the time of day falls inside [StartHour, EndHour)
// in the window's location.
func (w *SendWindow) IsWithinWindow(t time.Time) bool {
	hour := t.In(w.location()).Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

// IsEligible reports whether the given instant is allowed for sending.
// Total over all timestamps, no side effects.
func (w *SendWindow) IsEligible(t time.Time) bool {
	local := t.In(w.location())
	return w.IsWorkingDay(local.Weekday()) && w.IsWithinWindow(local)
}

// NextWorkingDay returns the first working day on or after day, always
// rolling forward, never backward. If no weekday is enabled the input is
// returned unchanged.
func (w *SendWindow) NextWorkingDay(day time.Time) time.Time {
	d := day
	for i := 0; i < 7; i++ {
		if w.IsWorkingDay(d.Weekday()) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return day
}

// LocalTime converts an instant into the window's business timezone
func (w *SendWindow) LocalTime(t time.Time) time.Time {
	return t.In(w.location())
}

// DayStart returns midnight of day's calendar date in the window's
// location. Day bounds must live in the same timezone the slots are placed
// in, or a window reaching past UTC midnight splits across two days.
func (w *SendWindow) DayStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, w.location())
}

func (w *SendWindow) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}
