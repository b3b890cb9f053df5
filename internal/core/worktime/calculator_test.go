package worktime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/worktime"
)

// 2025-03-07 is a Friday; 2025-03-10 the following Monday.
var (
	friday1600 = time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC)
	friday1000 = time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	monday0830 = time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
)

func TestProjectDeadline_ZeroDurationReturnsStart(t *testing.T) {
	cal := domain.NewStandard8x5()

	got := worktime.ProjectDeadline(cal, nil, false, friday1600, 0)

	assert.Equal(t, friday1600, got)
}

func TestProjectDeadline_24x7IsPlainAddition(t *testing.T) {
	cal := domain.NewStandard24x7()
	durations := []time.Duration{
		time.Minute,
		2 * time.Hour,
		37*time.Hour + 13*time.Minute,
		21 * 24 * time.Hour,
	}

	for _, d := range durations {
		got := worktime.ProjectDeadline(cal, nil, false, friday1600, d)
		assert.Equal(t, friday1600.Add(d), got, "duration %s", d)
	}
}

func TestProjectDeadline_RollsOverWeekend(t *testing.T) {
	// Friday 16:00 with a 120 minute limit: 89 working minutes remain on
	// Friday (16:00 to 17:29), the remaining 31 resume Monday 08:30.
	cal := domain.NewStandard8x5()

	got := worktime.ProjectDeadline(cal, nil, false, friday1600, 120*time.Minute)

	want := time.Date(2025, 3, 10, 9, 1, 0, 0, time.UTC)
	assert.Equal(t, want, got)
}

func TestProjectDeadline_SkipsBreakWithoutConsuming(t *testing.T) {
	cal := domain.NewStandard8x5()

	t.Run("consumption crosses the break", func(t *testing.T) {
		// 10:00 + 5h: one hour to the 11:00 break, then four hours from 11:59.
		got := worktime.ProjectDeadline(cal, nil, false, friday1000, 5*time.Hour)
		assert.Equal(t, time.Date(2025, 3, 7, 15, 59, 0, 0, time.UTC), got)
	})

	t.Run("start inside the break advances to break end", func(t *testing.T) {
		start := time.Date(2025, 3, 7, 11, 30, 0, 0, time.UTC)
		got := worktime.ProjectDeadline(cal, nil, false, start, 10*time.Minute)
		assert.Equal(t, time.Date(2025, 3, 7, 12, 9, 0, 0, time.UTC), got)
	})
}

func TestProjectDeadline_StartBeforeWindowClampsForward(t *testing.T) {
	cal := domain.NewStandard8x5()
	start := time.Date(2025, 3, 7, 6, 0, 0, 0, time.UTC)

	got := worktime.ProjectDeadline(cal, nil, false, start, 30*time.Minute)

	assert.Equal(t, time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC), got)
}

func TestProjectDeadline_JumpsHolidays(t *testing.T) {
	cal := domain.NewStandard8x5()
	holidays := []domain.Holiday{{
		Start: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 7, 23, 59, 59, 999000000, time.UTC),
	}}

	got := worktime.ProjectDeadline(cal, holidays, false, friday1000, time.Hour)

	// The whole Friday is a holiday, so the hour is consumed Monday morning.
	assert.Equal(t, monday0830.Add(time.Hour), got)
}

func TestProjectDeadline_HolidayOpeningMidWindow(t *testing.T) {
	// A half-day holiday that starts ahead of the cursor inside the same
	// working window must not be consumed as working time.
	cal := domain.NewStandard24x7()
	holidays := []domain.Holiday{{
		Start: time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC),
	}}

	deadline := worktime.ProjectDeadline(cal, holidays, false, friday1000, 4*time.Hour)

	// Two hours to the holiday, two more from one millisecond past its end.
	want := time.Date(2025, 3, 7, 16, 0, 0, 1000000, time.UTC)
	assert.Equal(t, want, deadline)

	elapsed := worktime.ElapsedWorkingTime(cal, holidays, false, friday1000, deadline)
	assert.Equal(t, 4*time.Hour, elapsed)
}

func TestProjectDeadline_IncludeHolidayIgnoresHolidays(t *testing.T) {
	cal := domain.NewStandard8x5()
	holidays := []domain.Holiday{{
		Start: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 7, 23, 59, 59, 999000000, time.UTC),
	}}

	got := worktime.ProjectDeadline(cal, holidays, true, friday1000, time.Hour)

	assert.Equal(t, time.Date(2025, 3, 7, 11, 0, 0, 0, time.UTC), got)
}

func TestProjectDeadline_ExcludedWeeks(t *testing.T) {
	// Only Mondays are working days, and the first weekly occurrence
	// (day-of-month / 7 == 0) is excluded.
	hours := &domain.WorkingHours{
		Start: domain.ClockTime{Hour: 9},
		End:   domain.ClockTime{Hour: 17},
	}
	var cal domain.WorkingTime
	cal.Days[time.Monday] = domain.WorkingDay{
		Working:      true,
		ExcludeWeeks: []int{0},
		Hours:        hours,
	}

	// 2025-03-03 is a Monday with day-of-month 3, week index 0: excluded.
	start := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	got := worktime.ProjectDeadline(cal, nil, false, start, time.Hour)

	// 2025-03-10 has week index 1 and is the first eligible Monday.
	assert.Equal(t, time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC), got)
}

func TestElapsedWorkingTime_FullWorkingDayIsEightHours(t *testing.T) {
	cal := domain.NewStandard8x5()
	from := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

	got := worktime.ElapsedWorkingTime(cal, nil, false, from, to)

	assert.Equal(t, 8*time.Hour, got)
}

func TestElapsedWorkingTime_WeekendIsZero(t *testing.T) {
	cal := domain.NewStandard8x5()
	from := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	got := worktime.ElapsedWorkingTime(cal, nil, false, from, to)

	assert.Equal(t, time.Duration(0), got)
}

func TestElapsedWorkingTime_ContainingHolidayYieldsZero(t *testing.T) {
	holidays := []domain.Holiday{{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC),
	}}

	for _, cal := range []domain.WorkingTime{
		domain.NewStandard8x5(),
		domain.NewStandard24x5(),
		domain.NewStandard24x7(),
	} {
		got := worktime.ElapsedWorkingTime(cal, holidays, false, friday1000, friday1600)
		assert.Equal(t, time.Duration(0), got, "calendar %s", cal.Type)
	}
}

func TestElapsedWorkingTime_OverlappingHolidaysAreSubtractedOnce(t *testing.T) {
	cal := domain.NewStandard24x7()
	// Two overlapping holidays covering 10:00-12:00 and 11:00-13:00 on the
	// same day: the union removes three hours.
	holidays := []domain.Holiday{
		{
			Start: time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC),
		},
		{
			Start: time.Date(2025, 3, 7, 11, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 7, 13, 0, 0, 0, time.UTC),
		},
	}
	from := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 7, 14, 0, 0, 0, time.UTC)

	got := worktime.ElapsedWorkingTime(cal, holidays, false, from, to)

	// 09:00-10:00 plus 13:00-14:00, modulo the millisecond resume offsets.
	assert.InDelta(t, (2 * time.Hour).Seconds(), got.Seconds(), 0.01)
}

func TestElapsedWorkingTime_SplitsAroundBreak(t *testing.T) {
	cal := domain.NewStandard8x5()
	from := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 7, 15, 59, 0, 0, time.UTC)

	got := worktime.ElapsedWorkingTime(cal, nil, false, from, to)

	assert.Equal(t, 5*time.Hour, got)
}

func TestRoundTrip_ElapsedOfProjectionEqualsDuration(t *testing.T) {
	holidays := []domain.Holiday{
		{
			// A mid-week public holiday.
			Start: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 11, 23, 59, 59, 999000000, time.UTC),
		},
		{
			// A half-day holiday starting inside every working window.
			Start: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC),
		},
	}

	cals := map[string]domain.WorkingTime{
		"8x5":  domain.NewStandard8x5(),
		"24x5": domain.NewStandard24x5(),
		"24x7": domain.NewStandard24x7(),
	}
	starts := []time.Time{
		friday1000,
		friday1600,
		time.Date(2025, 3, 8, 14, 0, 0, 0, time.UTC),  // Saturday
		time.Date(2025, 3, 10, 11, 30, 0, 0, time.UTC), // inside the 8x5 break
	}
	durations := []time.Duration{
		time.Minute,
		45 * time.Minute,
		4 * time.Hour,
		30 * time.Hour,
	}

	for name, cal := range cals {
		for _, start := range starts {
			for _, d := range durations {
				deadline := worktime.ProjectDeadline(cal, holidays, false, start, d)
				require.True(t, deadline.After(start), "%s: deadline must advance", name)

				elapsed := worktime.ElapsedWorkingTime(cal, holidays, false, start, deadline)
				assert.Equal(t, d, elapsed,
					"%s: start=%s duration=%s deadline=%s", name, start, d, deadline)
			}
		}
	}
}
