// Package worktime implements pure working-time arithmetic over a calendar:
// projecting a deadline forward by a duration of working time, and measuring
// the working time elapsed between two instants. All functions are
// deterministic and free of I/O so they can be tested against literal
// calendar fixtures.
package worktime

import (
	"time"

	"github.com/lorrc/sla-engine/internal/core/domain"
)

// ProjectDeadline advances a cursor from start, consuming wall-clock time
// only while inside a working window, until duration d of working time has
// been consumed. Breaks are skipped without consuming; holidays are jumped
// over entirely unless includeHoliday is set. A non-positive duration
// returns start unchanged.
//
// The calendar is assumed valid (see domain.WorkingTime.Validate); a
// calendar without any working day returns start unchanged rather than
// looping forever.
func ProjectDeadline(cal domain.WorkingTime, holidays []domain.Holiday, includeHoliday bool, start time.Time, d time.Duration) time.Time {
	if d <= 0 || !hasWorkingDay(cal) {
		return start
	}

	cursor := start
	remaining := d
	for {
		if !includeHoliday {
			if h, ok := holidayAt(holidays, cursor); ok {
				cursor = h.End.Add(time.Millisecond)
				continue
			}
		}

		day := cal.Days[cursor.Weekday()]
		if !day.Working || day.Excluded(weekOfMonth(cursor)) {
			cursor = nextMidnight(cursor)
			continue
		}

		winStart := day.Hours.Start.On(cursor)
		winEnd := day.Hours.End.On(cursor)

		if cursor.Before(winStart) {
			cursor = winStart
			continue
		}
		if !cursor.Before(winEnd) {
			cursor = nextMidnight(cursor)
			continue
		}

		// A cursor inside the break is advanced to break end first; a
		// cursor before the break may only consume up to the break.
		segEnd := winEnd
		if day.Hours.HasBreak() {
			breakStart := day.Hours.BreakStart.On(cursor)
			breakEnd := day.Hours.BreakEnd.On(cursor)
			if !cursor.Before(breakStart) && cursor.Before(breakEnd) {
				cursor = breakEnd
				continue
			}
			if cursor.Before(breakStart) {
				segEnd = breakStart
			}
		}

		// A holiday opening mid-segment caps what can be consumed; the
		// next iteration's holiday jump takes over from its start.
		if !includeHoliday {
			if hs, ok := nextHolidayStart(holidays, cursor, segEnd); ok {
				segEnd = hs
			}
		}

		if avail := segEnd.Sub(cursor); avail < remaining {
			remaining -= avail
			cursor = segEnd
			continue
		}
		return cursor.Add(remaining)
	}
}

// ElapsedWorkingTime measures how much working time lies inside [from, to]:
// holiday intervals are subtracted first (recursively, so overlapping
// holidays are handled), then each remaining sub-interval is intersected
// with the per-day working windows, split around the break.
func ElapsedWorkingTime(cal domain.WorkingTime, holidays []domain.Holiday, includeHoliday bool, from, to time.Time) time.Duration {
	if !to.After(from) {
		return 0
	}

	intervals := []interval{{from, to}}
	if !includeHoliday {
		intervals = subtractHolidays(interval{from, to}, holidays)
	}

	var total time.Duration
	for _, iv := range intervals {
		total += workingOverlap(cal, iv)
	}
	return total
}

type interval struct {
	from, to time.Time
}

func (iv interval) empty() bool {
	return !iv.to.After(iv.from)
}

// subtractHolidays splits iv around the first holiday that overlaps it and
// recurses both remainders against the remaining holiday list. An interval
// fully contained in a holiday yields nothing.
func subtractHolidays(iv interval, holidays []domain.Holiday) []interval {
	if iv.empty() {
		return nil
	}
	if len(holidays) == 0 {
		return []interval{iv}
	}

	h, rest := holidays[0], holidays[1:]
	if h.End.Before(iv.from) || h.Start.After(iv.to) {
		return subtractHolidays(iv, rest)
	}

	// Working time resumes one millisecond after the inclusive holiday end,
	// mirroring the cursor jump in ProjectDeadline so the two functions
	// round-trip exactly.
	resume := h.End.Add(time.Millisecond)

	var out []interval
	if iv.from.Before(h.Start) {
		out = append(out, subtractHolidays(interval{iv.from, h.Start}, rest)...)
	}
	if iv.to.After(resume) {
		out = append(out, subtractHolidays(interval{resume, iv.to}, rest)...)
	}
	return out
}

// workingOverlap sums the lengths of the working segments of each calendar
// day that intersect iv.
func workingOverlap(cal domain.WorkingTime, iv interval) time.Duration {
	var total time.Duration
	for day := startOfDay(iv.from); day.Before(iv.to); day = day.AddDate(0, 0, 1) {
		wd := cal.Days[day.Weekday()]
		if !wd.Working || wd.Excluded(weekOfMonth(day)) {
			continue
		}

		winStart := wd.Hours.Start.On(day)
		winEnd := wd.Hours.End.On(day)
		if wd.Hours.HasBreak() {
			total += overlap(iv, winStart, wd.Hours.BreakStart.On(day))
			total += overlap(iv, wd.Hours.BreakEnd.On(day), winEnd)
		} else {
			total += overlap(iv, winStart, winEnd)
		}
	}
	return total
}

// overlap returns the length of the intersection of iv with [a, b].
func overlap(iv interval, a, b time.Time) time.Duration {
	if a.Before(iv.from) {
		a = iv.from
	}
	if b.After(iv.to) {
		b = iv.to
	}
	if d := b.Sub(a); d > 0 {
		return d
	}
	return 0
}

// weekOfMonth is the zero-indexed occurrence index used by excluded weeks:
// day-of-month divided by seven.
func weekOfMonth(t time.Time) int {
	return t.Day() / 7
}

// nextHolidayStart returns the earliest holiday start strictly inside
// (after, before), if any.
func nextHolidayStart(holidays []domain.Holiday, after, before time.Time) (time.Time, bool) {
	var best time.Time
	found := false
	for _, h := range holidays {
		if !h.Start.After(after) || !h.Start.Before(before) {
			continue
		}
		if !found || h.Start.Before(best) {
			best = h.Start
			found = true
		}
	}
	return best, found
}

func holidayAt(holidays []domain.Holiday, t time.Time) (domain.Holiday, bool) {
	for _, h := range holidays {
		if h.Contains(t) {
			return h, true
		}
	}
	return domain.Holiday{}, false
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func hasWorkingDay(cal domain.WorkingTime) bool {
	for _, d := range cal.Days {
		if d.Working {
			return true
		}
	}
	return false
}
