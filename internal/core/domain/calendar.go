package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for calendar validation.
var (
	ErrWorkingHoursRequired = errors.New("working day requires working hours")
	ErrInvalidWorkingWindow = errors.New("working hours start must be before end")
	ErrInvalidBreakWindow   = errors.New("break window must lie inside working hours")
	ErrInvalidHolidayRange  = errors.New("holiday start must not be after end")
)

// WorkingTimeType identifies a working-calendar template.
type WorkingTimeType string

const (
	Standard8x5  WorkingTimeType = "STANDARD_8x5"
	Standard24x5 WorkingTimeType = "STANDARD_24x5"
	Standard24x7 WorkingTimeType = "STANDARD_24x7"
)

// ClockTime is an hour/minute pair within a single day.
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns the offset from midnight in minutes.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// On anchors the clock time to the calendar date of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
}

// WorkingHours is the daily working window with an optional break.
type WorkingHours struct {
	Start      ClockTime  `json:"start"`
	End        ClockTime  `json:"end"`
	BreakStart *ClockTime `json:"breakStart,omitempty"`
	BreakEnd   *ClockTime `json:"breakEnd,omitempty"`
}

// HasBreak reports whether both break bounds are configured.
func (w WorkingHours) HasBreak() bool {
	return w.BreakStart != nil && w.BreakEnd != nil
}

// Validate enforces the window and break invariants.
func (w WorkingHours) Validate() error {
	if w.Start.Minutes() >= w.End.Minutes() {
		return ErrInvalidWorkingWindow
	}
	if w.BreakStart != nil || w.BreakEnd != nil {
		if !w.HasBreak() {
			return ErrInvalidBreakWindow
		}
		if w.BreakStart.Minutes() >= w.BreakEnd.Minutes() ||
			w.BreakStart.Minutes() <= w.Start.Minutes() ||
			w.BreakEnd.Minutes() >= w.End.Minutes() {
			return ErrInvalidBreakWindow
		}
	}
	return nil
}

// WorkingDay describes one weekday of the calendar. ExcludeWeeks lists
// zero-indexed occurrences of the weekday within a month to skip, where the
// occurrence index is day-of-month / 7.
type WorkingDay struct {
	Working      bool          `json:"working"`
	ExcludeWeeks []int         `json:"excludeWeeks,omitempty"`
	Hours        *WorkingHours `json:"hours,omitempty"`
}

// Excluded reports whether the given week-of-month occurrence is skipped.
func (d WorkingDay) Excluded(week int) bool {
	for _, w := range d.ExcludeWeeks {
		if w == week {
			return true
		}
	}
	return false
}

// WorkingTime is a working-hours calendar, one template per weekday.
// Days is indexed by time.Weekday (Sunday = 0).
type WorkingTime struct {
	ID   uuid.UUID       `json:"id"`
	Type WorkingTimeType `json:"type"`
	Days [7]WorkingDay   `json:"days"`
}

// Validate checks that every working day carries a consistent window.
// Calendars are validated here, at admin time; the calculator assumes a
// valid calendar and never raises domain errors.
func (wt WorkingTime) Validate() error {
	for _, d := range wt.Days {
		if !d.Working {
			continue
		}
		if d.Hours == nil {
			return ErrWorkingHoursRequired
		}
		if err := d.Hours.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewStandard8x5 builds a Monday-to-Friday calendar, 08:30-17:29 with a
// 11:00-11:59 break, which yields an eight-hour working day.
func NewStandard8x5() WorkingTime {
	hours := &WorkingHours{
		Start:      ClockTime{Hour: 8, Minute: 30},
		End:        ClockTime{Hour: 17, Minute: 29},
		BreakStart: &ClockTime{Hour: 11, Minute: 0},
		BreakEnd:   &ClockTime{Hour: 11, Minute: 59},
	}
	wt := WorkingTime{ID: uuid.New(), Type: Standard8x5}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		wt.Days[wd] = WorkingDay{Working: true, Hours: hours}
	}
	return wt
}

// NewStandard24x5 builds a Monday-to-Friday calendar covering the whole day.
// An End of hour 24 marks the end-of-day boundary so that no minute is lost.
func NewStandard24x5() WorkingTime {
	hours := &WorkingHours{
		Start: ClockTime{Hour: 0, Minute: 0},
		End:   ClockTime{Hour: 24, Minute: 0},
	}
	wt := WorkingTime{ID: uuid.New(), Type: Standard24x5}
	for wd := time.Monday; wd <= time.Friday; wd++ {
		wt.Days[wd] = WorkingDay{Working: true, Hours: hours}
	}
	return wt
}

// NewStandard24x7 builds an always-on calendar.
func NewStandard24x7() WorkingTime {
	hours := &WorkingHours{
		Start: ClockTime{Hour: 0, Minute: 0},
		End:   ClockTime{Hour: 24, Minute: 0},
	}
	wt := WorkingTime{ID: uuid.New(), Type: Standard24x7}
	for wd := range wt.Days {
		wt.Days[wd] = WorkingDay{Working: true, Hours: hours}
	}
	return wt
}

// Holiday is an inclusive non-working interval. Holidays are tenant scoped
// and may overlap; the calculator handles overlap via interval subtraction.
type Holiday struct {
	ID     uuid.UUID `json:"id"`
	Tenant string    `json:"tenant"`
	Name   string    `json:"name"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Contains reports whether t lies inside the holiday, bounds included.
func (h Holiday) Contains(t time.Time) bool {
	return !t.Before(h.Start) && !t.After(h.End)
}

// Validate checks the interval ordering.
func (h Holiday) Validate() error {
	if h.Start.After(h.End) {
		return ErrInvalidHolidayRange
	}
	return nil
}
